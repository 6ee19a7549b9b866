package slackclient

import (
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// ToMrkdwn converts model Markdown into Slack mrkdwn: **bold** becomes *bold*,
// *italic* becomes _italic_, ~~strike~~ becomes ~strike~, links become
// <url|text>, headings become bold lines and bullets become "•". Code is
// kept verbatim.
func ToMrkdwn(input string) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	doc := getMarkdownParser().Parser().Parse(text.NewReader(source))

	r := &mrkdwnRenderer{source: source}
	_ = ast.Walk(doc, r.walk)
	return strings.TrimRight(r.out.String(), "\n ")
}

type mrkdwnRenderer struct {
	source     []byte
	out        strings.Builder
	quoteDepth int
	lists      []listState
}

type listState struct {
	ordered bool
	next    int
}

// write appends s, repeating the blockquote marker after every newline.
func (r *mrkdwnRenderer) write(s string) {
	if r.quoteDepth == 0 {
		r.out.WriteString(s)
		return
	}
	prefix := strings.Repeat(">", r.quoteDepth) + " "
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			r.out.WriteString("\n")
			r.out.WriteString(prefix)
		}
		r.out.WriteString(line)
	}
}

func (r *mrkdwnRenderer) escaped(b []byte) {
	r.write(mrkdwnEscaper.Replace(string(b)))
}

// separate starts a new block: a blank line between top-level blocks, a
// single newline between blocks inside a list item.
func (r *mrkdwnRenderer) separate(node ast.Node) {
	if r.out.Len() == 0 {
		return
	}
	parent := node.Parent()
	if parent == nil {
		return
	}
	switch parent.Kind() {
	case ast.KindListItem:
		if node.PreviousSibling() != nil {
			r.write("\n")
		}
		return
	case ast.KindBlockquote:
		if node.PreviousSibling() == nil {
			return
		}
	}
	r.write("\n\n")
}

func (r *mrkdwnRenderer) lines(node ast.Node) {
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.write(string(seg.Value(r.source)))
	}
}

func (r *mrkdwnRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node.Kind() {
	case ast.KindParagraph, ast.KindTextBlock:
		if entering {
			r.separate(node)
		}

	case ast.KindHeading:
		if entering {
			r.separate(node)
			r.write("*")
		} else {
			r.write("*")
		}

	case ast.KindFencedCodeBlock, ast.KindCodeBlock:
		if entering {
			r.separate(node)
			r.write("```\n")
			r.lines(node)
			r.write("```")
		}
		return ast.WalkSkipChildren, nil

	case ast.KindHTMLBlock:
		if entering {
			r.separate(node)
			var sb strings.Builder
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				sb.Write(seg.Value(r.source))
			}
			r.escaped([]byte(strings.TrimRight(sb.String(), "\n")))
		}
		return ast.WalkSkipChildren, nil

	case ast.KindBlockquote:
		if entering {
			r.separate(node)
			r.quoteDepth++
			r.out.WriteString(strings.Repeat(">", r.quoteDepth) + " ")
		} else {
			r.quoteDepth--
		}

	case ast.KindList:
		if entering {
			list := node.(*ast.List)
			r.separate(node)
			r.lists = append(r.lists, listState{ordered: list.IsOrdered(), next: list.Start})
		} else {
			r.lists = r.lists[:len(r.lists)-1]
		}

	case ast.KindListItem:
		if entering {
			if node.PreviousSibling() != nil {
				r.write("\n")
			}
			depth := len(r.lists)
			r.write(strings.Repeat("    ", depth-1))
			top := &r.lists[depth-1]
			if top.ordered {
				r.write(strconv.Itoa(top.next) + ". ")
				top.next++
			} else {
				r.write("• ")
			}
		}

	case ast.KindThematicBreak:
		if entering {
			r.separate(node)
			r.write("───")
		}

	case ast.KindText:
		if entering {
			t := node.(*ast.Text)
			r.escaped(t.Segment.Value(r.source))
			if t.HardLineBreak() || t.SoftLineBreak() {
				r.write("\n")
			}
		}

	case ast.KindString:
		if entering {
			r.escaped(node.(*ast.String).Value)
		}

	case ast.KindEmphasis:
		if node.(*ast.Emphasis).Level >= 2 {
			r.write("*")
		} else {
			r.write("_")
		}

	case extast.KindStrikethrough:
		r.write("~")

	case ast.KindCodeSpan:
		if entering {
			var sb strings.Builder
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					sb.Write(t.Segment.Value(r.source))
				}
			}
			r.write("`" + mrkdwnEscaper.Replace(sb.String()) + "`")
		}
		return ast.WalkSkipChildren, nil

	case ast.KindLink:
		if entering {
			r.write("<" + string(node.(*ast.Link).Destination) + "|")
		} else {
			r.write(">")
		}

	case ast.KindImage:
		if entering {
			r.write("<" + string(node.(*ast.Image).Destination) + "|")
		} else {
			r.write(">")
		}

	case ast.KindAutoLink:
		if entering {
			link := node.(*ast.AutoLink)
			url := string(link.URL(r.source))
			if link.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
				url = "mailto:" + url
			}
			label := string(link.Label(r.source))
			if label == url {
				r.write("<" + url + ">")
			} else {
				r.write("<" + url + "|" + label + ">")
			}
		}
		return ast.WalkSkipChildren, nil

	case ast.KindRawHTML:
		if entering {
			segs := node.(*ast.RawHTML).Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				r.escaped(seg.Value(r.source))
			}
		}
		return ast.WalkSkipChildren, nil

	case extast.KindTaskCheckBox:
		if entering {
			if node.(*extast.TaskCheckBox).IsChecked {
				r.write("☑ ")
			} else {
				r.write("☐ ")
			}
		}

	case extast.KindTable:
		if entering {
			r.separate(node)
		}

	case extast.KindTableHeader, extast.KindTableRow:
		if entering && node.PreviousSibling() != nil {
			r.write("\n")
		}

	case extast.KindTableCell:
		if entering && node.PreviousSibling() != nil {
			r.write(" | ")
		}
	}

	return ast.WalkContinue, nil
}
