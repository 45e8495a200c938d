package cli

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mutscan/mutscan/pkg/data"
	"github.com/mutscan/mutscan/pkg/score"
	"github.com/mutscan/mutscan/pkg/seq"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
	serverPortDefault         = 8080
)

var (
	//go:embed templates/*
	embedFS embed.FS

	portFlag = &cli.IntFlag{
		Name:  "port",
		Usage: "Port on which the server will listen",
		Value: serverPortDefault,
	}

	serverCmd = &cli.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start a local HTTP server with LLR heatmap views",
		Action:  cmdStartServer,
		Flags: []cli.Flag{
			portFlag,
			debugFlag,
		},
	}
)

func cmdStartServer(c *cli.Context) error {
	cfg := getConfig(c)
	address := fmt.Sprintf("127.0.0.1:%d", c.Int(portFlag.Name))

	mux := makeRouter(cfg.DB)
	s := &http.Server{
		Addr:           address,
		Handler:        mux,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("error starting server", "error", err)
		}
	}()

	slog.Info("server started", "address", fmt.Sprintf("http://%s", address))

	<-done

	ctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	return nil
}

func makeRouter(db *sql.DB) *http.ServeMux {
	tmpl := template.Must(template.New("").ParseFS(embedFS, "templates/*.html"))

	mux := http.NewServeMux()

	// Views
	mux.HandleFunc("GET /{$}", homeViewHandler(tmpl, db))
	mux.HandleFunc("GET /scan/{id}", scanViewHandler(tmpl, db))

	// Data API
	mux.HandleFunc("GET /data/scans", scansAPIHandler(db))
	mux.HandleFunc("GET /data/scan/{id}", scanAPIHandler(db))
	mux.HandleFunc("GET /data/state", stateAPIHandler(db))

	return mux
}

func homeViewHandler(tmpl *template.Template, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := data.SearchScans(db, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := tmpl.ExecuteTemplate(w, "home.html", list); err != nil {
			slog.Error("failed to render home view", "error", err)
		}
	}
}

// heatmapView is the scan template model: one row per amino acid, one
// cell per position, colors precomputed server side.
type heatmapView struct {
	Table  *score.Table
	Labels []string
	Rows   []heatmapRow
	Start  int
	End    int
}

type heatmapRow struct {
	Residue string
	Cells   []heatmapCell
}

type heatmapCell struct {
	Value string
	// Color is a precomputed rgb() value; CSS-typed so the template
	// engine does not mangle it.
	Color    template.CSS
	WildType bool
	Title    string
}

func scanViewHandler(tmpl *template.Template, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid scan id", http.StatusBadRequest)
			return
		}

		table, err := data.GetScan(db, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		start, end, err := rangeParams(r, table)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		view := buildHeatmapView(table, start, end)
		if err := tmpl.ExecuteTemplate(w, "scan.html", view); err != nil {
			slog.Error("failed to render scan view", "error", err)
		}
	}
}

// rangeParams reads optional start/end query params, clamped to the
// table bounds. A start past end is a client error, not a silent no-op.
func rangeParams(r *http.Request, t *score.Table) (int, int, error) {
	start, end := t.Start, t.End

	if v := r.URL.Query().Get("start"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid start: %q", v)
		}
		start = min(max(n, t.Start), t.End)
	}
	if v := r.URL.Query().Get("end"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid end: %q", v)
		}
		end = min(max(n, t.Start), t.End)
	}

	if start > end {
		return 0, 0, fmt.Errorf("start %d is past end %d", start, end)
	}
	return start, end, nil
}

func buildHeatmapView(t *score.Table, start, end int) *heatmapView {
	from, to := start-t.Start, end-t.Start

	maxAbs := 0.0
	for i := range t.LLR {
		for j := from; j <= to; j++ {
			if v := t.LLR[i][j]; v > maxAbs {
				maxAbs = v
			} else if -v > maxAbs {
				maxAbs = -v
			}
		}
	}

	labels := t.PositionLabels()

	view := &heatmapView{
		Table:  t,
		Labels: labels[from : to+1],
		Start:  start,
		End:    end,
	}

	for i := 0; i < seq.AlphabetSize; i++ {
		row := heatmapRow{Residue: string(seq.Residue(i))}
		for j := from; j <= to; j++ {
			v := t.LLR[i][j]
			row.Cells = append(row.Cells, heatmapCell{
				Value:    fmt.Sprintf("%.2f", v),
				Color:    template.CSS(llrColor(v, maxAbs)),
				WildType: t.WildType(j) == seq.Residue(i),
				Title:    fmt.Sprintf("%c%d%c: %.4f", t.WildType(j), t.Position(j), seq.Residue(i), v),
			})
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// llrColor maps an LLR to a white-anchored diverging color: blue for
// substitutions the model favors over wild type, red for disfavored.
func llrColor(v, maxAbs float64) string {
	if maxAbs == 0 {
		return "rgb(255,255,255)"
	}
	frac := v / maxAbs
	if frac >= 0 {
		c := int(255 - frac*180)
		return fmt.Sprintf("rgb(%d,%d,255)", c, c)
	}
	c := int(255 + frac*180)
	return fmt.Sprintf("rgb(255,%d,%d)", c, c)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func scansAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := data.SearchScans(db, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, list)
	}
}

func scanAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			http.Error(w, "invalid scan id", http.StatusBadRequest)
			return
		}
		table, err := data.GetScan(db, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, table)
	}
}

func stateAPIHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := data.GetDataState(db)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, state)
	}
}
