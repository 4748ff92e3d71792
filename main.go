// Blog
// ====
// A small website for posts written in a Notion database.
//
// Also check the routes from passing the --routes flag,
// to run yourself do: `go run . --routes`
//
// Snapshot the published posts:
// -----------------------------
// $ NOTION_TOKEN=... NOTION_DATABASE_ID=... go run . cache
// Successfully cached 3 posts.
//
// Boot the server:
// ----------------
// $ go run .
//
// Client requests:
// ----------------
// $ curl http://localhost:3333/api/posts
// [{"id":"...","title":"Hello World","slug":"hello-world",...}]
//
// $ curl http://localhost:3333/api/posts/hello-world
// {"id":"...","title":"Hello World","slug":"hello-world","content":"...","url":"..."}
//
// $ curl http://localhost:3333/api/posts/nope
// {"status":"Resource not found."}
//
// $ curl http://localhost:9999/metrics
package main

import "github.com/SergeyParamoshkin/blog/cmd"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
