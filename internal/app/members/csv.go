package members

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
)

// TemplateFilename is the suggested download name of the import template.
const TemplateFilename = "member_import_template.csv"

// maxImportBytes bounds an uploaded file.
const maxImportBytes = 4 << 20

const (
	colName             = "name"
	colStatus           = "status"
	colDepartment       = "department"
	colEntryDate        = "entryDate"
	colBirthDate        = "birthDate"
	colOrixaPrimary     = "orixas_primary"
	colOrixaSecondary   = "orixas_secondary"
	colSymbolURL        = "symbolUrl"
	colJuremaDone       = "jurema_done"
	colJuremaDate       = "jurema_date"
	colSupportOrderDone = "supportOrder_done"
	colSupportOrderDate = "supportOrder_date"
	colPasseOrderDone   = "passeOrder_done"
	colPasseOrderDate   = "passeOrder_date"
	colCanLead          = "canLead"
	colFunction         = "function"

	entityColumnPrefix = "entities_"
)

// TemplateColumns is the header row of the import template. Nested fields are
// joined with "_".
func TemplateColumns() []string {
	cols := []string{colName, colStatus, colDepartment, colEntryDate, colBirthDate, colOrixaPrimary, colOrixaSecondary}
	for _, k := range domain.EntityKeys {
		cols = append(cols, entityColumnPrefix+string(k))
	}
	return append(cols,
		colSymbolURL,
		colJuremaDone, colJuremaDate,
		colSupportOrderDone, colSupportOrderDate,
		colPasseOrderDone, colPasseOrderDate,
		colCanLead, colFunction,
	)
}

// WriteTemplate writes a header-only CSV file.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TemplateColumns()); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// columnAliases maps the Portuguese headers of the community's spreadsheets.
var columnAliases = map[string]string{
	"nome":              colName,
	"situacao":          colStatus,
	"departamento":      colDepartment,
	"dataEntrada":       colEntryDate,
	"dataNascimento":    colBirthDate,
	"orixas_primeiro":   colOrixaPrimary,
	"orixas_segundo":    colOrixaSecondary,
	"pontoRiscadoUrl":   colSymbolURL,
	"juremado_e":        colJuremaDone,
	"juremado_data":     colJuremaDate,
	"ordemSuporte_tem":  colSupportOrderDone,
	"ordemSuporte_data": colSupportOrderDate,
	"ordemPasse_tem":    colPasseOrderDone,
	"ordemPasse_data":   colPasseOrderDate,
	"podeDarPasse":      colCanLead,
	"funcao":            colFunction,

	"entidades_exu":        entityColumnPrefix + string(domain.EntityExu),
	"entidades_pomboGira":  entityColumnPrefix + string(domain.EntityPombaGira),
	"entidades_pombaGira":  entityColumnPrefix + string(domain.EntityPombaGira),
	"entidades_caboclo":    entityColumnPrefix + string(domain.EntityCaboclo),
	"entidades_baiano":     entityColumnPrefix + string(domain.EntityBaiano),
	"entidades_marinheiro": entityColumnPrefix + string(domain.EntityMarinheiro),
	"entidades_cigano":     entityColumnPrefix + string(domain.EntityCigano),
	"entidades_pretoVelho": entityColumnPrefix + string(domain.EntityPretoVelho),
	"entidades_ere":        entityColumnPrefix + string(domain.EntityEre),
	"entidades_boiadeiro":  entityColumnPrefix + string(domain.EntityBoiadeiro),
	"entidades_exuMirim":   entityColumnPrefix + string(domain.EntityExuMirim),
}

var headerIndex = func() map[string]string {
	idx := make(map[string]string)
	for _, c := range TemplateColumns() {
		idx[headerKey(c)] = c
	}
	for alias, c := range columnAliases {
		idx[headerKey(alias)] = c
	}
	return idx
}()

// headerKey folds case and separators so "Entry Date", "entry_date" and
// "entryDate" name the same column.
func headerKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// resolveHeader maps a header cell to its template column.
func resolveHeader(h string) (string, bool) {
	c, ok := headerIndex[headerKey(h)]
	return c, ok
}

type importRow struct {
	line   int
	member domain.Member
}

const emptyImportMessage = "file is empty or has only the header row"

// parseImport reads the file into members with defaults applied. Rows without
// a name become errors; unparseable values fall back to defaults with a warning.
func parseImport(r io.Reader, today *time.Time) ([]importRow, ImportResult, error) {
	var res ImportResult

	raw, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return nil, res, err
	}
	if len(raw) > maxImportBytes {
		return nil, res, validationError("import file too large", map[string]any{"file": fmt.Sprintf("must be at most %d bytes", maxImportBytes)})
	}
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = detectDelimiter(raw)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, res, validationError(emptyImportMessage, nil)
	}
	if err != nil {
		return nil, res, validationError("invalid CSV header", map[string]any{"file": err.Error()})
	}
	cols := make([]string, len(header))
	for i, h := range header {
		c, ok := resolveHeader(h)
		if !ok {
			if strings.TrimSpace(h) != "" {
				res.Warnings = append(res.Warnings, RowError{Line: 1, Message: fmt.Sprintf("unknown column %q ignored", h)})
			}
			continue
		}
		cols[i] = c
	}

	var rows []importRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				res.Errors = append(res.Errors, RowError{Line: pe.Line, Message: pe.Err.Error()})
				continue
			}
			return nil, res, err
		}
		if blankRecord(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		values := make(map[string]string, len(cols))
		for i, c := range cols {
			if c == "" || i >= len(rec) {
				continue
			}
			values[c] = strings.TrimSpace(rec[i])
		}
		p := rowParser{line: line, values: values, res: &res}
		m, ok := p.member(today)
		if !ok {
			continue
		}
		rows = append(rows, importRow{line: line, member: m})
	}
	if len(rows) == 0 && len(res.Errors) == 0 {
		return nil, res, validationError(emptyImportMessage, nil)
	}
	return rows, res, nil
}

// detectDelimiter picks ';' when the header line has more semicolons than commas,
// as spreadsheets in pt-BR locales export.
func detectDelimiter(raw []byte) rune {
	first := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		first = raw[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

type rowParser struct {
	line   int
	values map[string]string
	res    *ImportResult
}

func (p rowParser) warn(format string, args ...any) {
	p.res.Warnings = append(p.res.Warnings, RowError{Line: p.line, Message: fmt.Sprintf(format, args...)})
}

func (p rowParser) member(today *time.Time) (domain.Member, bool) {
	name := domain.NormalizeHumanName(p.values[colName])
	if name == "" {
		p.res.Errors = append(p.res.Errors, RowError{Line: p.line, Message: "name is required; row skipped"})
		return domain.Member{}, false
	}

	m := domain.Member{
		Name:       name,
		Status:     domain.StatusActive,
		Department: domain.DepartmentNone,
		Function:   domain.FunctionNone,
		Orixas: domain.Orixas{
			Primary:   p.values[colOrixaPrimary],
			Secondary: p.values[colOrixaSecondary],
		},
		SymbolURL: p.values[colSymbolURL],
	}
	if v := p.values[colStatus]; v != "" {
		if st, err := domain.ParseMemberStatus(v); err == nil {
			m.Status = st
		} else {
			p.warn("unknown status %q, using %s", v, m.Status)
		}
	}
	if v := p.values[colDepartment]; v != "" {
		if d, err := domain.ParseDepartment(v); err == nil {
			m.Department = d
		} else {
			p.warn("unknown department %q, using %s", v, m.Department)
		}
	}
	if v := p.values[colFunction]; v != "" {
		if f, err := domain.ParseFunction(v); err == nil {
			m.Function = f
		} else {
			p.warn("unknown function %q, using %s", v, m.Function)
		}
	}
	m.CanLead = p.bool(colCanLead)
	m.EntryDate = p.date(colEntryDate)
	if m.EntryDate == nil {
		d := *today
		m.EntryDate = &d
	}
	m.BirthDate = p.date(colBirthDate)

	for _, k := range domain.EntityKeys {
		if v := p.values[entityColumnPrefix+string(k)]; v != "" {
			if m.Entities == nil {
				m.Entities = make(domain.Entities)
			}
			m.Entities[k] = v
		}
	}

	m.Jurema = domain.Jurema{Done: p.bool(colJuremaDone), Date: p.date(colJuremaDate)}
	m.SupportOrder = domain.Milestone{Done: p.bool(colSupportOrderDone), Date: p.date(colSupportOrderDate)}
	m.PasseOrder = domain.Milestone{Done: p.bool(colPasseOrderDone), Date: p.date(colPasseOrderDate)}
	return m, true
}

func (p rowParser) bool(col string) bool {
	v := p.values[col]
	switch strings.ToLower(v) {
	case "":
		return false
	case "true", "sim", "s", "yes", "y", "1", "x", "verdadeiro":
		return true
	case "false", "não", "nao", "n", "no", "0", "falso":
		return false
	}
	p.warn("%s: %q is not a yes/no value, using false", col, v)
	return false
}

var dateLayouts = []string{"2006-01-02", "02/01/2006", "2/1/2006"}

func (p rowParser) date(col string) *time.Time {
	v := p.values[col]
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	p.warn("%s: %q is not a date (YYYY-MM-DD or DD/MM/YYYY), left empty", col, v)
	return nil
}
