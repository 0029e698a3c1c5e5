package hxdyn

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
)

// ShellOptions configures ContentAreaShell.
type ShellOptions struct {
	Path           string
	Suffix         string
	ShowRedirects  bool
	PreventLoad    bool
	AllowedRetries *int
	// Loader replaces the default empty loader body.
	Loader templ.Component
	// Error is rendered inside the error region.
	Error templ.Component
}

// ContentAreaShell renders the markup a ContentArea binds to:
//
//	<div class="dynamic-content-area" data-path="...">
//	  <div class="loader hidden"></div>
//	  <div class="content-area"></div>
//	  <div class="error-area hidden"></div>
//	</div>
func ContentAreaShell(opts ShellOptions) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<div class="` + ClassDynamicContentArea + `"`)
		writeData(&b, DataPath, opts.Path)
		if opts.Suffix != "" {
			writeData(&b, DataSuffix, opts.Suffix)
		}
		if opts.ShowRedirects {
			writeData(&b, DataShowRedirect, "true")
		}
		if opts.PreventLoad {
			writeData(&b, DataPreventLoad, "true")
		}
		if opts.AllowedRetries != nil {
			writeData(&b, DataAllowedRetries, strconv.Itoa(*opts.AllowedRetries))
		}
		b.WriteString(`><div class="` + ClassLoader + ` ` + ClassHidden + `">`)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}

		if opts.Loader != nil {
			if err := opts.Loader.Render(ctx, w); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</div><div class="`+ClassContentArea+`"></div><div class="`+ClassErrorArea+` `+ClassHidden+`">`); err != nil {
			return err
		}
		if opts.Error != nil {
			if err := opts.Error.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div></div>`)
		return err
	})
}

func writeData(b *strings.Builder, key, value string) {
	b.WriteString(` data-` + key + `="` + templ.EscapeString(value) + `"`)
}
