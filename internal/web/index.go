package web

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/pmobuilder/internal/logging"
)

// IndexPage lists the saved panels and the fields each section needs.
func IndexPage(panels []string, schemas []SchemaView) templ.Component {
	body := group(
		templ.Raw(`<h1>PMO Builder</h1>`),
		templ.Raw(`<p>Build the panel, microhaplotype, specimen and experiment sections, then merge them into one document.</p>`),
		sectionsTable(schemas),
		panelList(panels),
	)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return layout("PMO Builder").Render(templ.WithChildren(ctx, body), w)
	})
}

// layout wraps the children of ctx in the page shell.
func layout(title string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		children := templ.GetChildren(ctx)
		ctx = templ.ClearChildren(ctx)

		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head><body>`); err != nil {
			return err
		}
		if err := children.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

func sectionsTable(schemas []SchemaView) templ.Component {
	rows := make([]templ.Component, 0, len(schemas))
	for _, sv := range schemas {
		rows = append(rows, sectionRow(sv))
	}
	return group(
		templ.Raw(`<h2>Sections</h2><table><thead><tr><th>Section</th><th>Required fields</th><th>Optional fields</th></tr></thead><tbody>`),
		group(rows...),
		templ.Raw(`</tbody></table>`),
	)
}

func sectionRow(sv SchemaView) templ.Component {
	return group(
		templ.Raw(`<tr>`),
		cell("td", sv.Label),
		cell("td", strings.Join(sv.Required, ", ")),
		cell("td", strings.Join(sv.Optional, ", ")),
		templ.Raw(`</tr>`),
	)
}

func panelList(panels []string) templ.Component {
	if len(panels) == 0 {
		return templ.Raw(`<h2>Saved panels</h2><p class="empty">No panels saved yet.</p>`)
	}
	items := make([]templ.Component, 0, len(panels))
	for _, id := range panels {
		items = append(items, cell("li", id))
	}
	return group(
		templ.Raw(`<h2>Saved panels</h2><ul class="panels">`),
		group(items...),
		templ.Raw(`</ul>`),
	)
}

// cell renders text escaped inside a tag.
func cell(tag, text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<"+tag+">"+templ.EscapeString(text)+"</"+tag+">")
		return err
	})
}

// group renders components in order, stopping at the first error.
func group(components ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, c := range components {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	panels, err := s.service.ListPanels(r.Context())
	if err != nil {
		// The page is still useful without the panel list.
		logging.FromContext(r.Context()).Warn("list panels for index", "error", err)
		panels = nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := IndexPage(panels, schemaViews()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}
