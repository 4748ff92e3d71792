package convert

import (
	"strconv"
	"strings"

	"github.com/SergeyParamoshkin/blog/client"
)

// Markdown flattens a block tree into a markdown document. Unsupported
// block types contribute only their children.
func Markdown(nodes []Node) string {
	return renderNodes(nodes)
}

func renderNodes(nodes []Node) string {
	var (
		b        strings.Builder
		number   int
		prevType string
	)
	for _, n := range nodes {
		if n.Block.Type == "numbered_list_item" {
			number++
		} else {
			number = 0
		}

		chunk := renderNode(n, number)
		if chunk == "" {
			continue
		}
		if b.Len() > 0 {
			if isListItem(prevType) && isListItem(n.Block.Type) {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(chunk)
		prevType = n.Block.Type
	}

	return b.String()
}

func isListItem(t string) bool {
	return t == "bulleted_list_item" || t == "numbered_list_item" || t == "to_do"
}

func renderNode(n Node, number int) string {
	b := n.Block
	children := renderNodes(n.Children)

	switch b.Type {
	case "paragraph":
		return joinBlocks(text(b.Paragraph), children)
	case "heading_1":
		return heading(1, b.Heading1, children)
	case "heading_2":
		return heading(2, b.Heading2, children)
	case "heading_3":
		return heading(3, b.Heading3, children)
	case "bulleted_list_item":
		return listItem("- ", 2, text(b.BulletedListItem), children)
	case "numbered_list_item":
		marker := strconv.Itoa(number) + ". "
		return listItem(marker, len(marker), text(b.NumberedListItem), children)
	case "to_do":
		box := "- [ ] "
		if b.ToDo != nil && b.ToDo.Checked {
			box = "- [x] "
		}
		return listItem(box, 2, text(b.ToDo), children)
	case "quote":
		return quote(joinBlocks(text(b.Quote), children))
	case "callout":
		body := text(b.Callout)
		if b.Callout != nil && b.Callout.Icon != nil && b.Callout.Icon.Emoji != "" {
			body = b.Callout.Icon.Emoji + " " + body
		}
		return quote(joinBlocks(body, children))
	case "toggle":
		return details(text(b.Toggle), children)
	case "code":
		return codeFence(b.Code)
	case "divider":
		return "---"
	case "equation":
		if b.Equation == nil {
			return ""
		}
		return "$$\n" + b.Equation.Expression + "\n$$"
	case "image":
		url := b.Image.Link()
		if url == "" {
			return ""
		}
		return "![" + client.PlainText(b.Image.Caption) + "](" + url + ")"
	case "video":
		return fileLink(b.Video)
	case "file":
		return fileLink(b.File)
	case "pdf":
		return fileLink(b.PDF)
	case "bookmark":
		return bookmark(b.Bookmark)
	case "embed":
		return bookmark(b.Embed)
	case "link_preview":
		return bookmark(b.LinkPreview)
	case "table":
		return table(b.Table, n.Children)
	}

	return children
}

func text(tb *client.TextBlock) string {
	if tb == nil {
		return ""
	}

	return RichText(tb.RichText)
}

func heading(level int, tb *client.TextBlock, children string) string {
	t := text(tb)
	if t == "" {
		return children
	}

	return joinBlocks(strings.Repeat("#", level)+" "+t, children)
}

func listItem(marker string, width int, body, children string) string {
	pad := strings.Repeat(" ", width)
	item := marker + indent(body, pad, false)
	if children == "" {
		return item
	}

	return item + "\n" + indent(children, pad, true)
}

func details(summary, children string) string {
	if children == "" {
		return "<details>\n<summary>" + summary + "</summary>\n</details>"
	}

	return "<details>\n<summary>" + summary + "</summary>\n\n" + children + "\n\n</details>"
}

func codeFence(tb *client.TextBlock) string {
	if tb == nil {
		return ""
	}
	lang := tb.Language
	if lang == "plain text" {
		lang = ""
	}

	code := client.PlainText(tb.RichText)
	fence := strings.Repeat("`", fenceLength(code))

	return fence + lang + "\n" + code + "\n" + fence
}

// fenceLength is one more than the longest run of backticks in code, and
// at least three.
func fenceLength(code string) int {
	longest, run := 0, 0
	for _, r := range code {
		if r != '`' {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	if longest < 3 {
		return 3
	}

	return longest + 1
}

func fileLink(f *client.File) string {
	url := f.Link()
	if url == "" {
		return ""
	}
	label := client.PlainText(f.Caption)
	if label == "" {
		label = f.Name
	}
	if label == "" {
		label = url
	}

	return "[" + label + "](" + url + ")"
}

func bookmark(l *client.LinkBlock) string {
	if l == nil || l.URL == "" {
		return ""
	}
	label := client.PlainText(l.Caption)
	if label == "" {
		label = l.URL
	}

	return "[" + label + "](" + l.URL + ")"
}

func table(t *client.TableBlock, rows []Node) string {
	width := 0
	if t != nil {
		width = t.TableWidth
	}

	var lines []string
	for _, r := range rows {
		if r.Block.TableRow == nil {
			continue
		}
		cells := make([]string, 0, width)
		for _, c := range r.Block.TableRow.Cells {
			cells = append(cells, strings.ReplaceAll(RichText(c), "|", `\|`))
		}
		if width == 0 {
			width = len(cells)
		}
		for len(cells) < width {
			cells = append(cells, "")
		}
		lines = append(lines, "| "+strings.Join(cells, " | ")+" |")
		if len(lines) == 1 {
			lines = append(lines, "|"+strings.Repeat(" --- |", width))
		}
	}

	return strings.Join(lines, "\n")
}

// RichText renders annotated text segments as inline markdown.
func RichText(segments []client.RichText) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(inline(s))
	}

	return b.String()
}

func inline(s client.RichText) string {
	if s.Type == "equation" && s.Equation != nil {
		return "$" + s.Equation.Expression + "$"
	}

	core := strings.TrimSpace(s.PlainText)
	if core == "" {
		return s.PlainText
	}
	lead := s.PlainText[:strings.Index(s.PlainText, core)]
	trail := s.PlainText[len(lead)+len(core):]

	a := s.Annotations
	if a.Code {
		core = "`" + core + "`"
	}
	if a.Strikethrough {
		core = "~~" + core + "~~"
	}
	if a.Italic {
		core = "_" + core + "_"
	}
	if a.Bold {
		core = "**" + core + "**"
	}

	href := s.Href
	if href == "" && s.Text != nil && s.Text.Link != nil {
		href = s.Text.Link.URL
	}
	if href != "" {
		core = "[" + core + "](" + href + ")"
	}

	return lead + core + trail
}

func joinBlocks(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return strings.Join(nonEmpty, "\n\n")
}

// indent prefixes lines with pad; the first line is left alone unless
// first is set. Blank lines stay blank.
func indent(s, pad string, first bool) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" || (i == 0 && !first) {
			continue
		}
		lines[i] = pad + line
	}

	return strings.Join(lines, "\n")
}

func quote(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line == "" {
			lines[i] = ">"
			continue
		}
		lines[i] = "> " + line
	}

	return strings.Join(lines, "\n")
}
