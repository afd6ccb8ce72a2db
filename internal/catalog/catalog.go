// Package catalog reads the player workbook. Every worksheet is one lot,
// in sheet order, and players are shuffled within their lot on each load.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
)

var ErrNoHeader = errors.New("no header row with a Name column")
var ErrMissingColumn = errors.New("missing column")

// RowError locates a row that was skipped.
type RowError struct {
	Sheet string
	Row   int // 1-based, as the spreadsheet shows it
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type column string

const (
	colName        column = "name"
	colRole        column = "role"
	colTeam        column = "team"
	colNationality column = "nationality"
	colUncapped    column = "uncapped"
	colBasePrice   column = "base price"
)

var required = []column{colName, colRole, colTeam, colNationality, colUncapped, colBasePrice}

var headerAliases = map[string]column{
	"name":        colName,
	"player":      colName,
	"role":        colRole,
	"team":        colTeam,
	"source team": colTeam,
	"nationality": colNationality,
	"uncapped":    colUncapped,
	"base price":  colBasePrice,
	"baseprice":   colBasePrice,
	"base":        colBasePrice,
}

var roleAliases = map[string]engine.Role{
	"bat":          engine.RoleBatter,
	"batter":       engine.RoleBatter,
	"batsman":      engine.RoleBatter,
	"bowl":         engine.RoleBowler,
	"bowler":       engine.RoleBowler,
	"ar":           engine.RoleAllRounder,
	"allrounder":   engine.RoleAllRounder,
	"wk":           engine.RoleWicketKeeper,
	"wicketkeeper": engine.RoleWicketKeeper,
	"keeper":       engine.RoleWicketKeeper,
}

var truthy = map[string]bool{"y": true, "yes": true, "true": true, "1": true}
var falsy = map[string]bool{"": true, "n": true, "no": true, "false": true, "0": true}

// fold normalizes a token for comparison: NFC, case-folded, single-spaced.
// A Caser keeps state, so each call gets its own.
func fold(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(norm.NFC.String(s))), " ")
}

// label cleans a display string without changing its case.
func label(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

func ParseRole(s string) (engine.Role, error) {
	key := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(fold(s))
	if r, ok := roleAliases[key]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func ParseNationality(s string) (engine.Nationality, error) {
	switch fold(s) {
	case "domestic", "indian", "":
		return engine.Domestic, nil
	case "overseas", "foreign", "international":
		return engine.Overseas, nil
	}
	return "", fmt.Errorf("unknown nationality %q", s)
}

func ParseUncapped(s string) (bool, error) {
	key := fold(s)
	switch {
	case truthy[key]:
		return true, nil
	case falsy[key]:
		return false, nil
	}
	return false, fmt.Errorf("bad uncapped flag %q", s)
}

func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("missing base price")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad base price %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("base price must be positive, got %s", d)
	}
	return d, nil
}

// ReadFile parses the workbook at path without shuffling.
func ReadFile(path string) (engine.Catalog, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return engine.Catalog{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return read(f)
}

// Read parses a workbook from r without shuffling.
func Read(r io.Reader) (engine.Catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return engine.Catalog{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return read(f)
}

// read returns every lot it could parse along with the combined problems.
// A sheet with a bad header is skipped; a bad row skips only that row.
func read(f *excelize.File) (engine.Catalog, error) {
	var cat engine.Catalog
	var errs error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sheet %s: %w", sheet, err))
			continue
		}
		lot, err := parseSheet(sheet, rows)
		errs = multierr.Append(errs, err)
		cat.Lots = append(cat.Lots, lot)
	}
	return cat, errs
}

func parseSheet(sheet string, rows [][]string) (engine.Lot, error) {
	lot := engine.Lot{Name: label(sheet)}

	headerAt := -1
	var cols map[column]int
	for i, row := range rows {
		if c, ok := headerColumns(row); ok {
			headerAt, cols = i, c
			break
		}
	}
	if headerAt < 0 {
		if len(rows) == 0 {
			return lot, nil
		}
		return lot, fmt.Errorf("sheet %s: %w", sheet, ErrNoHeader)
	}
	var missing []string
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return lot, fmt.Errorf("sheet %s: %w: %s", sheet, ErrMissingColumn, strings.Join(missing, ", "))
	}

	var errs error
	for i := headerAt + 1; i < len(rows); i++ {
		cell := func(c column) string {
			if idx := cols[c]; idx < len(rows[i]) {
				return rows[i][idx]
			}
			return ""
		}
		name := label(cell(colName))
		if name == "" {
			continue
		}
		p, err := parseRow(name, cell)
		if err != nil {
			errs = multierr.Append(errs, &RowError{Sheet: sheet, Row: i + 1, Err: err})
			continue
		}
		lot.Players = append(lot.Players, p)
	}
	return lot, errs
}

func headerColumns(row []string) (map[column]int, bool) {
	cols := map[column]int{}
	for i, v := range row {
		if c, ok := headerAliases[fold(v)]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	_, ok := cols[colName]
	return cols, ok
}

func parseRow(name string, cell func(column) string) (engine.Player, error) {
	p := engine.Player{Name: name, SourceTeam: label(cell(colTeam))}
	var err, errs error
	if p.Role, err = ParseRole(cell(colRole)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if p.Nationality, err = ParseNationality(cell(colNationality)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if p.Uncapped, err = ParseUncapped(cell(colUncapped)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if p.BasePrice, err = ParsePrice(cell(colBasePrice)); err != nil {
		errs = multierr.Append(errs, err)
	}
	if p.SourceTeam == "" {
		errs = multierr.Append(errs, errors.New("missing team"))
	}
	return p, errs
}

// Loader is an engine.Source backed by a workbook on disk.
type Loader struct {
	path    string
	shuffle bool

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Loader)

// WithSeed makes the per-lot shuffle reproducible.
func WithSeed(seed uint64) Option {
	return func(l *Loader) { l.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithoutShuffle keeps sheet order.
func WithoutShuffle() Option {
	return func(l *Loader) { l.shuffle = false }
}

func NewLoader(path string, opts ...Option) *Loader {
	l := &Loader{path: path, shuffle: true}
	for _, opt := range opts {
		opt(l)
	}
	if l.rng == nil {
		l.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return l
}

func (l *Loader) Path() string { return l.path }

// Load reads the workbook and shuffles each lot. Row problems come back
// as an error next to the lots that did parse.
func (l *Loader) Load() (engine.Catalog, error) {
	cat, err := ReadFile(l.path)
	if l.shuffle {
		l.mu.Lock()
		for _, lot := range cat.Lots {
			l.rng.Shuffle(len(lot.Players), func(i, j int) {
				lot.Players[i], lot.Players[j] = lot.Players[j], lot.Players[i]
			})
		}
		l.mu.Unlock()
	}
	return cat, err
}
