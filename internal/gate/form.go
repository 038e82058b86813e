package gate

import (
	"html/template"
	"net/http"
)

// FormData brands the unlock page with the merchant's own identity.
type FormData struct {
	StoreName   string
	Description string
	ReturnTo    string
	Error       string
}

var formTemplate = template.Must(template.New("unlock").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>{{.StoreName}}</title>
<style>
body { font-family: -apple-system, sans-serif; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; background: #fafafa; }
.card { max-width: 22rem; width: 100%; padding: 2rem; background: #fff; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,.1); }
h1 { font-size: 1.25rem; margin: 0 0 .5rem; }
p { color: #555; margin: 0 0 1rem; }
.error { color: #b00020; margin: 0 0 1rem; }
input[type=password] { width: 100%; padding: .5rem; margin-bottom: 1rem; box-sizing: border-box; }
button { width: 100%; padding: .6rem; border: 0; border-radius: 4px; background: #111; color: #fff; cursor: pointer; }
</style>
</head>
<body>
<div class="card">
<h1>{{.StoreName}}</h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/password">
<input type="hidden" name="return_to" value="{{.ReturnTo}}">
<input type="password" name="password" placeholder="Store password" autofocus required>
<button type="submit">Enter store</button>
</form>
</div>
</body>
</html>
`))

// RenderForm writes the unlock page. Always HTTP 200: crawlers and cache
// layers must treat the locked page as the storefront's current content.
func RenderForm(w http.ResponseWriter, data FormData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_ = formTemplate.Execute(w, data)
}
