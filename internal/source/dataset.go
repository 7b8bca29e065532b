package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"vakit/internal/model"
)

// datasetDay is one record of the bundled yearly dataset. The file is a map
// of ISO date to record, as produced by the ingestion tool.
type datasetDay struct {
	Hijri  string `json:"hicriTarih"`
	Imsak  string `json:"imsak"`
	Gunes  string `json:"gunes"`
	Ogle   string `json:"ogle"`
	Ikindi string `json:"ikindi"`
	Aksam  string `json:"aksam"`
	Yatsi  string `json:"yatsi"`
}

func (d datasetDay) times() map[model.EventKey]string {
	out := make(map[model.EventKey]string, len(model.EventOrder))
	for k, v := range map[model.EventKey]string{
		model.Imsak:  d.Imsak,
		model.Gunes:  d.Gunes,
		model.Ogle:   d.Ogle,
		model.Ikindi: d.Ikindi,
		model.Aksam:  d.Aksam,
		model.Yatsi:  d.Yatsi,
	} {
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	return out
}

// Dataset serves yearly tables from "<id>.json" files in fsys.
type Dataset struct {
	fsys fs.FS
}

// NewDataset reads the dataset from fsys, usually os.DirFS(dir).
func NewDataset(fsys fs.FS) *Dataset {
	return &Dataset{fsys: fsys}
}

func (d *Dataset) Name() string { return "dataset" }

func (d *Dataset) PeriodFor(t time.Time) model.Period { return model.YearOf(t) }

func (d *Dataset) Fetch(_ context.Context, loc model.Location, p model.Period) (model.TimeTable, error) {
	if loc.IsZero() {
		return model.TimeTable{}, unavailable(d.Name(), loc, p, fmt.Errorf("empty location"))
	}
	name := model.Slug(loc.ID) + ".json"
	data, err := fs.ReadFile(d.fsys, name)
	if err != nil {
		return model.TimeTable{}, unavailable(d.Name(), loc, p, err)
	}

	var raw map[string]datasetDay
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.TimeTable{}, unavailable(d.Name(), loc, p, fmt.Errorf("decode %s: %w", name, err))
	}

	table := model.NewTimeTable(loc, p)
	for date, rec := range raw {
		if !p.Contains(date) {
			continue
		}
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			continue
		}
		table.Put(model.DailyTimes{Date: date, Hijri: rec.Hijri, Times: rec.times()})
	}
	if table.Empty() {
		return model.TimeTable{}, unavailable(d.Name(), loc, p, fmt.Errorf("%s has no days in %s", name, p.Key()))
	}
	return table, nil
}

// Locations lists the dataset files, naming them from the province list
// where the slug is known.
func (d *Dataset) Locations() ([]model.Location, error) {
	entries, err := fs.ReadDir(d.fsys, ".")
	if err != nil {
		return nil, err
	}
	names := provinceNames()
	out := make([]model.Location, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		loc := model.Location{ID: id, Name: id}
		if n, ok := names[id]; ok {
			loc.Name = n
		}
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
