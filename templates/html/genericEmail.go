package templates

import (
	"html"
	"html/template"
	"strings"
)

var emailLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background:#f4f6fb;font-family:'Segoe UI',Tahoma,Verdana,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;">
        <tr><td style="background:#dc2626;padding:32px 30px;text-align:center;">
          <h1 style="color:#ffffff;margin:0;font-size:22px;">{{.Subject}}</h1>
        </td></tr>
        <tr><td style="padding:32px 30px;color:#1f2937;line-height:1.6;font-size:15px;">{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</td></tr>
        <tr><td style="padding:24px;text-align:center;color:#6b7280;font-size:12px;border-top:1px solid #e5e7eb;">
          SafeKid Nepal | Together we bring them home
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

type emailView struct {
	Subject string
	Lines   []string
}

// RenderGenericEmail wraps a plain-text body in the SafeKid e-mail layout.
// Every line of body is escaped and separated by <br>.
func RenderGenericEmail(subject, body string) string {
	var b strings.Builder
	view := emailView{Subject: subject, Lines: strings.Split(body, "\n")}
	if err := emailLayout.Execute(&b, view); err != nil {
		return html.EscapeString(body)
	}
	return b.String()
}
