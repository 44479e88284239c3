package web

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/pmobuilder/internal/core"
	"github.com/JonMunkholm/pmobuilder/internal/logging"
	"github.com/JonMunkholm/pmobuilder/internal/service"
	"github.com/JonMunkholm/pmobuilder/internal/table"
)

// formOverhead is the room left for multipart headers and form fields on
// top of the table itself.
const formOverhead = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":      "ok",
		"conversions": s.service.LimiterStatus(),
		"sessions":    s.sessions.Len(),
	})
}

// SchemaView describes one section for clients building a mapping form.
type SchemaView struct {
	Kind     string   `json:"kind"`
	Label    string   `json:"label"`
	Aliases  []string `json:"aliases,omitempty"`
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

func schemaViews() []SchemaView {
	defs := core.All()
	out := make([]SchemaView, 0, len(defs))
	for _, d := range defs {
		out = append(out, SchemaView{
			Kind:     string(d.Kind),
			Label:    d.Label,
			Aliases:  d.Aliases,
			Required: nonNil(d.Required()),
			Optional: nonNil(d.Optional()),
		})
	}
	return out
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, schemaViews())
}

// handleDownloadTemplate returns a tab-delimited header row with every field
// of a section, ready to be filled in.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	def, err := sectionParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.tsv"`, def.Kind))

	if err := writeTemplate(w, def.FieldNames()); err != nil {
		logging.FromContext(r.Context()).Error("template write error", "section", def.Kind, "error", err)
	}
}

// writeTemplate writes fields as a single tab-delimited header row.
func writeTemplate(w io.Writer, fields []string) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.Write(fields); err != nil {
		return err
	}
	tw.Flush()
	return tw.Error()
}

// readUpload parses the multipart form and reads its "file" part as a table.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*table.Table, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)

	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, table.ErrTooLarge
		}
		return nil, errNoFile
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	return s.service.ReadTable(file)
}

// decodeOptions reads the JSON "options" form field into v.
func decodeOptions(r *http.Request, v any) error {
	raw := strings.TrimSpace(r.FormValue("options"))
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return core.NewValidationError("options", "", fmt.Sprintf("options are not valid JSON: %v", err))
	}
	return nil
}

func sectionParam(r *http.Request) (core.SectionDefinition, error) {
	return core.Lookup(chi.URLParam(r, "section"))
}

// handleMatch suggests a mapping for an uploaded table.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	def, err := sectionParam(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	tbl, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	res, err := s.service.MatchColumns(r.Context(), def.Kind, tbl.Columns, service.MatchRequest{
		Method:     r.FormValue("method"),
		Assignment: r.FormValue("assignment"),
		APIKey:     r.FormValue("api_key"),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleCheckDuplicates validates a hand-edited mapping.
func (s *Server) handleCheckDuplicates(w http.ResponseWriter, r *http.Request) {
	var m core.Mapping
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, formOverhead)).Decode(&m); err != nil {
		s.respondError(w, r, core.NewValidationError("mapping", "", "mapping must be a JSON object of field to column"))
		return
	}
	if err := s.service.CheckMapping(m); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, r, http.StatusCreated, map[string]string{"session_id": sess.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Info(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionRequest resolves the session of a build request and tags the
// request context with it.
func (s *Server) sessionRequest(r *http.Request) (string, *http.Request, error) {
	id := chi.URLParam(r, "sessionID")
	if !s.sessions.Exists(id) {
		return "", r, ErrSessionNotFound
	}
	return id, r.WithContext(withSession(r.Context(), r, id)), nil
}

// mappingOrMatch returns the mapping the client sent, or an automatic one
// when it sent none.
func (s *Server) mappingOrMatch(r *http.Request, kind core.SectionKind, tbl *table.Table, m core.Mapping) (core.Mapping, error) {
	if len(m) > 0 {
		return m, nil
	}
	res, err := s.service.MatchColumns(r.Context(), kind, tbl.Columns, service.MatchRequest{})
	if err != nil {
		return nil, err
	}
	return res.Mapping, nil
}

// PanelOptions is the "options" field of a panel build.
type PanelOptions struct {
	PanelID    string          `json:"panel_id"`
	Mapping    core.Mapping    `json:"mapping"`
	Genome     core.GenomeInfo `json:"genome_info"`
	Additional []string        `json:"additional"`
	Save       bool            `json:"save"`
}

func (s *Server) handleBuildPanel(w http.ResponseWriter, r *http.Request) {
	id, r, err := s.sessionRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tbl, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var opts PanelOptions
	if err := decodeOptions(r, &opts); err != nil {
		s.respondError(w, r, err)
		return
	}
	mapping, err := s.mappingOrMatch(r, core.SectionPanel, tbl, opts.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	frag, err := s.service.BuildPanel(r.Context(), tbl, core.PanelInput{
		PanelID:    opts.PanelID,
		Mapping:    mapping,
		Genome:     opts.Genome,
		Additional: opts.Additional,
	}, opts.Save)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.sessions.Update(id, func(sec *core.Sections) { sec.Panel = frag }); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDocument(w, r, frag)
}

func (s *Server) handleLoadPanel(w http.ResponseWriter, r *http.Request) {
	id, r, err := s.sessionRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	frag, err := s.service.LoadPanel(r.Context(), chi.URLParam(r, "panelID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.sessions.Update(id, func(sec *core.Sections) { sec.Panel = frag }); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDocument(w, r, frag)
}

// MicrohaplotypeOptions is the "options" field of a microhaplotype build.
type MicrohaplotypeOptions struct {
	BioinformaticsID string            `json:"bioinformatics_id"`
	Mapping          core.Mapping      `json:"mapping"`
	Additional       map[string]string `json:"additional"`
}

func (s *Server) handleBuildMicrohaplotypes(w http.ResponseWriter, r *http.Request) {
	id, r, err := s.sessionRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tbl, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var opts MicrohaplotypeOptions
	if err := decodeOptions(r, &opts); err != nil {
		s.respondError(w, r, err)
		return
	}
	mapping, err := s.mappingOrMatch(r, core.SectionMicrohaplotype, tbl, opts.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	frag, err := s.service.BuildMicrohaplotypes(r.Context(), tbl, core.MicrohaplotypeInput{
		BioinformaticsID: opts.BioinformaticsID,
		Mapping:          mapping,
		Additional:       opts.Additional,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.sessions.Update(id, func(sec *core.Sections) { sec.Microhaplotypes = frag }); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDocument(w, r, frag)
}

// RecordOptions is the "options" field of a specimen or experiment build.
type RecordOptions struct {
	Mapping    core.Mapping `json:"mapping"`
	Additional []string     `json:"additional"`
}

func (s *Server) handleBuildSpecimens(w http.ResponseWriter, r *http.Request) {
	s.buildRecords(w, r, core.SectionSpecimen)
}

func (s *Server) handleBuildExperiments(w http.ResponseWriter, r *http.Request) {
	s.buildRecords(w, r, core.SectionExperiment)
}

func (s *Server) buildRecords(w http.ResponseWriter, r *http.Request, kind core.SectionKind) {
	id, r, err := s.sessionRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	tbl, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var opts RecordOptions
	if err := decodeOptions(r, &opts); err != nil {
		s.respondError(w, r, err)
		return
	}
	mapping, err := s.mappingOrMatch(r, kind, tbl, opts.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	in := core.RecordInput{Mapping: mapping, Additional: opts.Additional}

	var (
		frag   any
		update func(*core.Sections)
	)
	if kind == core.SectionSpecimen {
		f, err := s.service.BuildSpecimens(r.Context(), tbl, in)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		frag, update = f, func(sec *core.Sections) { sec.Specimens = f }
	} else {
		f, err := s.service.BuildExperiments(r.Context(), tbl, in)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		frag, update = f, func(sec *core.Sections) { sec.Experiments = f }
	}

	if err := s.sessions.Update(id, update); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDocument(w, r, frag)
}

// handleMerge assembles the session's sections. With ?crosscheck=true the
// document must also cross-reference cleanly.
func (s *Server) handleMerge(w http.ResponseWriter, r *http.Request) {
	id, r, err := s.sessionRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sections, err := s.sessions.Sections(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	doc, err := s.service.Assemble(r.Context(), sections)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("crosscheck") == "true" {
		if err := core.CrossCheck(doc); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	writeDocument(w, r, doc)
}

func (s *Server) handleListPanels(w http.ResponseWriter, r *http.Request) {
	ids, err := s.service.ListPanels(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"panels": ids})
}

func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	frag, err := s.service.LoadPanel(r.Context(), chi.URLParam(r, "panelID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeDocument(w, r, frag)
}

func (s *Server) handleDeletePanel(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePanel(r.Context(), chi.URLParam(r, "panelID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
