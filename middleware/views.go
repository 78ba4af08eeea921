package middleware

import (
	"html/template"
	"net/http"
	"time"
)

var loadingPage = template.Must(template.New("loading").Parse(`<!doctype html>
<html lang="id">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Seconds}}">
<title>Memuat…</title>
</head>
<body>
<p role="status">Memuat…</p>
</body>
</html>
`))

var deniedPage = template.Must(template.New("denied").Parse(`<!doctype html>
<html lang="id">
<head>
<meta charset="utf-8">
<title>Akses ditolak</title>
</head>
<body>
<h1>Akses ditolak</h1>
<p>Anda tidak memiliki izin untuk membuka halaman ini.</p>
<p>
<a href="javascript:history.back()" data-action="back">Kembali</a>
<a href="{{.Home}}" data-action="home">Ke beranda</a>
</p>
</body>
</html>
`))

func renderLoading(w http.ResponseWriter, refresh time.Duration) {
	secs := refreshSeconds(refresh)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = loadingPage.Execute(w, struct{ Seconds int }{secs})
}

func refreshSeconds(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

func renderDenied(w http.ResponseWriter, home string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = deniedPage.Execute(w, struct{ Home string }{home})
}
