package export

import (
	"html/template"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/osa030/showtime/internal/domain/duration"
	"github.com/osa030/showtime/internal/domain/setlist"
)

var sheetTemplate = template.Must(template.New("sheet").Funcs(template.FuncMap{
	"clock": duration.Format,
	"title": func(r setlist.Row) string { return r.Title(UnknownTitle) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.ShowName}}</title>
<style>
body { font-family: sans-serif; padding: 20px; color: black; background: white; }
table { width: 100%; border-collapse: collapse; margin-bottom: 20px; }
th { text-align: left; border-bottom: 2px solid #000; padding: 10px; }
td { padding: 8px; border-bottom: 1px solid #ddd; }
tr.speech { background-color: #fffce0; }
td.num { text-align: right; }
.total { font-size: 1.2em; font-weight: bold; text-align: right; margin-top: 20px; border-top: 2px solid black; padding-top: 10px; }
.gap-note { margin-top: 10px; font-style: italic; color: #555; }
</style>
</head>
<body>
<h1>{{.ShowName}}</h1>
<table>
<thead>
<tr><th>#</th><th>Title</th><th>Authors</th><th>Starts</th><th class="num">Duration</th></tr>
</thead>
<tbody>
{{- range .Rows}}
<tr{{if .Song.IsSpeech}} class="speech"{{end}}>
<td>{{.Position}}</td>
<td>{{if .Song.IsSpeech}}&#127908; {{end}}<b>{{title .}}</b></td>
<td>{{if .Known}}{{.Song.Authors}}{{end}}</td>
<td>{{clock .StartsAt}}</td>
<td class="num">{{.Duration}}</td>
</tr>
{{- end}}
</tbody>
</table>
{{if gt (len .Rows) 1}}<div class="gap-note">{{.GapNote}}, included in the total</div>{{end}}
<div class="total">Total: {{.Total}}</div>
</body>
</html>
`))

// HTML renders the sheet as a printable page.
func HTML(w io.Writer, s Sheet) error {
	if err := sheetTemplate.Execute(w, s); err != nil {
		return errors.Wrap(err, "failed to render print sheet")
	}
	return nil
}
