package dashboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/de-tools/lakespend/pkg/models/store"
	"github.com/de-tools/lakespend/pkg/services/dashboard"
	g "maragu.dev/gomponents"
	"maragu.dev/gomponents/html"
)

const (
	appTitle   = "Databricks LakeSpend"
	chatTitle  = "Resource Assistant"
	styleSheet = `
body { font-family: system-ui, sans-serif; margin: 0; background: #FAFAFA; color: #1B3139; }
nav { background: #1B3139; padding: 0.75rem 1.5rem; display: flex; gap: 1.25rem; }
nav a { color: #FFFFFF; text-decoration: none; }
nav a.active { color: #FF3621; font-weight: 600; }
main { padding: 1.5rem; }
.card { background: #FFFFFF; border: 1px solid #E0E0E0; border-radius: 6px; padding: 1rem; margin-bottom: 1.25rem; overflow-x: auto; }
table { border-collapse: collapse; width: 100%; font-size: 0.875rem; }
th, td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #EEEEEE; }
th { color: #616161; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
.error { background: #FDECEA; border: 1px solid #F44336; color: #B71C1C; padding: 0.75rem; border-radius: 4px; }
.muted { color: #9E9E9E; }
.msg { padding: 0.75rem 1rem; border-radius: 6px; margin-bottom: 0.75rem; white-space: pre-wrap; }
.msg.user { background: #E3F2FD; }
.msg.assistant { background: #FFFFFF; border: 1px solid #E0E0E0; }
.msg.tool-call { background: #FFF3E0; font-size: 0.875rem; }
.msg.tool-output { background: #F5F7FA; font-size: 0.875rem; }
pre { margin: 0.5rem 0 0; white-space: pre-wrap; word-break: break-word; }
textarea { width: 100%; min-height: 4rem; }
`
)

type pageLink struct {
	Href  string
	Title string
}

func navLinks() []pageLink {
	links := []pageLink{{Href: "/", Title: "Overview"}}
	for _, p := range dashboard.Pages() {
		links = append(links, pageLink{Href: "/pages/" + p.Slug, Title: p.Title})
	}
	return append(links, pageLink{Href: "/chat", Title: chatTitle})
}

func layout(title, active string, body ...g.Node) g.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(g.Text(title+" · "+appTitle)),
				html.StyleEl(g.Raw(styleSheet)),
			),
			html.Body(
				html.Nav(
					g.Map(navLinks(), func(l pageLink) g.Node {
						return html.A(html.Href(l.Href), g.If(l.Href == active, html.Class("active")), g.Text(l.Title))
					}),
				),
				html.Main(
					html.H1(g.Text(title)),
					g.Group(body),
				),
			),
		),
	)
}

func overviewPage(source string) g.Node {
	return layout("Overview", "/",
		html.P(html.Class("muted"), g.Textf("Data source: %s", source)),
		g.Map(dashboard.Pages(), func(p dashboard.Page) g.Node {
			return html.Div(html.Class("card"),
				html.H2(html.A(html.Href("/pages/"+p.Slug), g.Text(p.Title))),
				html.Ul(
					g.Map(p.Datasets, func(d dashboard.Dataset) g.Node {
						return html.Li(g.Text(d.Title))
					}),
				),
			)
		}),
	)
}

func datasetPage(page dashboard.Page, tables []dashboard.Table) g.Node {
	return layout(page.Title, "/pages/"+page.Slug,
		g.Map(tables, func(t dashboard.Table) g.Node {
			return html.Div(html.Class("card"),
				html.H2(g.Text(t.Dataset.Title)),
				g.If(t.Err != nil, errorBanner(t)),
				g.If(t.Err == nil, datasetTable(t.Data)),
			)
		}),
	)
}

func errorBanner(t dashboard.Table) g.Node {
	msg := ""
	if t.Err != nil {
		msg = t.Err.Error()
	}
	return html.Div(html.Class("error"), html.Role("alert"),
		g.Textf("Could not load %s: %s", t.Dataset.Name, msg),
	)
}

func datasetTable(ds *store.Dataset) g.Node {
	if ds == nil || len(ds.Rows) == 0 {
		return html.P(html.Class("muted"), g.Text("No rows."))
	}
	return g.Group{
		html.P(html.Class("muted"), g.Textf("%d rows", len(ds.Rows))),
		html.Table(
			html.THead(html.Tr(
				g.Map(ds.Columns, func(c string) g.Node {
					return html.Th(g.Text(columnTitle(c)))
				}),
			)),
			html.TBody(
				g.Map(ds.Rows, func(row []any) g.Node {
					cells := make([]g.Node, 0, len(row))
					for i, v := range row {
						column := ""
						if i < len(ds.Columns) {
							column = ds.Columns[i]
						}
						cells = append(cells, cell(column, v))
					}
					return html.Tr(cells...)
				}),
			),
		),
	}
}

func cell(column string, v any) g.Node {
	switch n := v.(type) {
	case float64:
		if isCurrency(column) {
			return html.Td(html.Class("num"), g.Text("$"+strconv.FormatFloat(n, 'f', 2, 64)))
		}
		return html.Td(html.Class("num"), g.Text(strconv.FormatFloat(n, 'f', -1, 64)))
	case int64:
		return html.Td(html.Class("num"), g.Text(strconv.FormatInt(n, 10)))
	case nil:
		return html.Td()
	default:
		return html.Td(g.Text(fmt.Sprint(v)))
	}
}

func isCurrency(column string) bool {
	c := strings.ToLower(column)
	return strings.Contains(c, "cost") || strings.Contains(c, "price") || c == "threshold" || c == "exceeded_by"
}

func columnTitle(column string) string {
	words := strings.Split(column, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func chatPage(history []agent.Item, historyJSON string) g.Node {
	return layout(chatTitle, "/chat",
		html.Div(html.ID("conversation"),
			g.If(len(history) == 0, html.P(html.Class("muted"),
				g.Text("Ask about resource tags, tag compliance or budget policies."))),
			g.Map(history, chatItem),
		),
		html.Form(html.Method("post"), html.Action("/chat"),
			html.Input(html.Type("hidden"), html.Name("history"), html.Value(historyJSON)),
			html.Textarea(html.Name("message"), html.Placeholder("Which clusters are missing a cost_center tag?"), html.Required()),
			html.Button(html.Type("submit"), g.Text("Send")),
		),
	)
}

func chatItem(item agent.Item) g.Node {
	switch item.Kind() {
	case agent.ItemTypeFunctionCall:
		return html.Div(html.Class("msg tool-call"),
			html.Strong(g.Textf("Tool call: %s", item.Name)),
			html.Pre(html.Code(g.Text(prettyJSON(item.Arguments)))),
		)
	case agent.ItemTypeFunctionCallOutput:
		return html.Div(html.Class("msg tool-output"),
			html.Strong(g.Text("Tool result")),
			html.Pre(html.Code(g.Text(prettyJSON(item.Output)))),
		)
	default:
		role := item.Role
		if role != agent.RoleUser {
			role = agent.RoleAssistant
		}
		return html.Div(html.Class("msg "+role), g.Text(item.Content.Text()))
	}
}

// prettyJSON indents s when it is JSON and returns it unchanged otherwise.
func prettyJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(s), "", "  "); err != nil {
		return s
	}
	return buf.String()
}
