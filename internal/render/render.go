package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fxchart/internal/chart"
	"fxchart/internal/logger"
	"fxchart/internal/market"
)

type Config struct {
	OutputDir     string
	PublicBaseURL string
	// RoutePrefix 是静态文件在 HTTP 服务中的挂载路径。
	RoutePrefix string
	Width       int
	Height      int
	EMAPeriods  []int
	Snapshot    bool
	Location    *time.Location
}

func (c *Config) withDefaults() Config {
	out := *c
	out.OutputDir = strings.TrimSpace(out.OutputDir)
	if out.OutputDir == "" {
		out.OutputDir = filepath.Join("data", "charts")
	}
	out.PublicBaseURL = strings.TrimRight(strings.TrimSpace(out.PublicBaseURL), "/")
	if out.RoutePrefix == "" {
		out.RoutePrefix = "/charts"
	}
	out.RoutePrefix = "/" + strings.Trim(out.RoutePrefix, "/")
	if out.Width <= 0 {
		out.Width = 1400
	}
	if out.Height <= 0 {
		out.Height = 700
	}
	if out.Location == nil {
		out.Location = time.UTC
	}
	return out
}

// Renderer 把序列写成 HTML 图表与 CSV，可选 PNG 快照；实现 chart.Renderer。
type Renderer struct {
	cfg Config
}

func New(cfg Config) (*Renderer, error) {
	final := cfg.withDefaults()
	if err := os.MkdirAll(final.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart output dir: %w", err)
	}
	return &Renderer{cfg: final}, nil
}

func (r *Renderer) OutputDir() string { return r.cfg.OutputDir }

func (r *Renderer) RoutePrefix() string { return r.cfg.RoutePrefix }

func (r *Renderer) Render(ctx context.Context, in chart.RenderInput) (chart.RenderOutput, error) {
	candles := completeCandles(in.Series)
	if len(candles) == 0 {
		return chart.RenderOutput{}, fmt.Errorf("no complete candles for %s", in.Pair)
	}

	csvName := CSVFileName(in.Pair, in.Range.Start, in.Range.End)
	if err := r.write(csvName, []byte(BuildCSV(candles, r.cfg.Location))); err != nil {
		return chart.RenderOutput{}, err
	}

	html, err := buildChartHTML(chartSpec{
		Title:    fmt.Sprintf("%s %s", in.Pair, in.Interval.Code),
		Subtitle: fmt.Sprintf("%s | %s | %d candles", in.Series.Symbol, in.Range, len(candles)),
		Interval: in.Interval,
		Candles:  candles,
		Overlays: emaOverlays(candles, r.cfg.EMAPeriods),
		Width:    r.cfg.Width,
		Height:   r.cfg.Height,
		Location: r.cfg.Location,
	})
	if err != nil {
		return chart.RenderOutput{}, fmt.Errorf("build chart html: %w", err)
	}
	base := artifactBase(in)
	htmlName := base + ".html"
	if err := r.write(htmlName, html); err != nil {
		return chart.RenderOutput{}, err
	}
	out := chart.RenderOutput{URL: r.publicURL(htmlName), CSVPath: csvName}

	if r.cfg.Snapshot {
		png, err := renderHTMLToPNG(ctx, html, r.cfg.Width, r.cfg.Height)
		if err != nil {
			logger.Warnf("生成 PNG 快照失败 %s: %v", in.Pair, err)
			return out, nil
		}
		pngName := base + ".png"
		if err := r.write(pngName, png); err != nil {
			logger.Warnf("保存 PNG 快照失败 %s: %v", in.Pair, err)
			return out, nil
		}
		out.SnapshotPath = pngName
	}
	logger.Infof("图表已生成: %s (csv=%s)", out.URL, csvName)
	return out, nil
}

func (r *Renderer) publicURL(name string) string {
	return r.cfg.PublicBaseURL + r.cfg.RoutePrefix + "/" + name
}

// write 先写临时文件再 rename，避免静态服务读到半截文件。
// 每次写入使用独立的临时文件，同名产物并发写入时各自完整。
func (r *Renderer) write(name string, data []byte) error {
	path := filepath.Join(r.cfg.OutputDir, name)
	tmp, err := os.CreateTemp(r.cfg.OutputDir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, 0o644)
	}
	if err == nil {
		err = os.Rename(tmpPath, path)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func artifactBase(in chart.RenderInput) string {
	return fmt.Sprintf("%s_%s_%s_%s",
		in.Pair.Slug(),
		in.Interval.Code,
		in.Range.Start.Format(fileStampLayout),
		strings.SplitN(uuid.NewString(), "-", 2)[0])
}

func completeCandles(series market.Series) []market.Candle {
	out := make([]market.Candle, 0, series.Len())
	for _, row := range series.Rows {
		if c, ok := row.Candle(); ok {
			out = append(out, c)
		}
	}
	return out
}
