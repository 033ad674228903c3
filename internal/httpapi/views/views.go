// Package views renders the browser screens: login, chat and the
// configuration error page.
package views

import (
	"embed"
	"html/template"

	"github.com/suPer8Hu/kai-companion/internal/chat"
)

const (
	ChatPage        = "chat.tmpl"
	LoginPage       = "login.tmpl"
	ConfigErrorPage = "config_error.tmpl"
)

//go:embed templates/*.tmpl
var files embed.FS

var funcs = template.FuncMap{
	"isUser": func(r chat.Role) bool { return r == chat.RoleUser },
}

// Templates parses every page; gin renders them by file name.
func Templates() *template.Template {
	return template.Must(template.New("").Funcs(funcs).ParseFS(files, "templates/*.tmpl"))
}

type Chat struct {
	UserID string
	State  chat.State
	Ready  bool
}

type Login struct {
	Hosted          bool
	SupabaseURL     string
	SupabaseAnonKey string
	Error           string
}

type ConfigError struct {
	Missing []string
}
