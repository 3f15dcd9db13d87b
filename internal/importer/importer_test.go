package importer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/punchamoorthee/rentledger/internal/domain"
)

var frenchHeaders = []string{
	"Prénom", "Nom", "Téléphone", "Email", "CNI", "Type de bien", "Bien",
	"Date de début", "Loyer", "Caution totale", "Caution payée", "Statut",
}

func TestGuess_FrenchHeaders(t *testing.T) {
	m := Guess(frenchHeaders, DefaultAliases())
	for i, f := range Fields {
		assert.Equal(t, i, m[f], string(f))
	}
}

func TestGuess_EnglishHeaders(t *testing.T) {
	headers := []string{"First Name", "Last Name", "Phone", "E-mail", "ID Number", "Property Type",
		"Property", "Start Date", "Monthly Rent", "Deposit Total", "Deposit Paid", "Status"}
	m := Guess(headers, DefaultAliases())
	for i, f := range Fields {
		assert.Equal(t, i, m[f], string(f))
	}
}

func TestGuess_ShortAliasNeedsWholeWord(t *testing.T) {
	m := Guess([]string{"Nom", "Deposit paid"}, Aliases{
		FieldLastName:    {"nom"},
		FieldCNI:         {"id"},
		FieldDepositPaid: {"deposit paid"},
	})
	_, mapped := m[FieldCNI]
	assert.False(t, mapped)
	assert.Equal(t, 1, m[FieldDepositPaid])
}

func TestGuess_UnmatchedFieldsStayUnmapped(t *testing.T) {
	m := Guess([]string{"Prénom", "Colonne X"}, DefaultAliases())
	assert.Equal(t, Mapping{FieldFirstName: 0}, m)
}

func TestMapping_Override(t *testing.T) {
	headers := []string{"A", "B", "C"}
	m := Mapping{FieldFirstName: 0}
	require.NoError(t, m.Override(headers, map[string]string{"lastName": "b", "phone": " C ", "firstName": ""}))
	assert.Equal(t, Mapping{FieldLastName: 1, FieldPhone: 2}, m)

	assert.Error(t, m.Override(headers, map[string]string{"nickname": "A"}))
	assert.Error(t, m.Override(headers, map[string]string{"phone": "Z"}))
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("phone:\n  - Numéro\n  - gsm\n"), 0o644))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"numéro", "gsm"}, aliases[FieldPhone])
	assert.Equal(t, DefaultAliases()[FieldEmail], aliases[FieldEmail])

	require.NoError(t, os.WriteFile(path, []byte("nickname: [x]\n"), 0o644))
	_, err = LoadAliases(path)
	assert.Error(t, err)

	aliases, err = LoadAliases("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAliases(), aliases)
}

func TestReadCSV_SniffsSeparator(t *testing.T) {
	for _, sep := range []string{",", ";"} {
		in := "\xef\xbb\xbfPrénom" + sep + "Nom" + sep + "Loyer\n" +
			"Awa" + sep + "Diop" + sep + "\"150 000,50\"\n"
		sheet, err := ReadCSV(strings.NewReader(in))
		require.NoError(t, err, sep)
		assert.Equal(t, []string{"Prénom", "Nom", "Loyer"}, sheet.Headers)
		require.Len(t, sheet.Rows, 1)
		assert.Equal(t, "150 000,50", sheet.Rows[0][2])
	}

	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestReadXLSX_RawDates(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Prénom", "Nom", "Date de début"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Awa", "Diop", 45292}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := Read("clients.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Prénom", "Nom", "Date de début"}, got.Headers)
	require.Len(t, got.Rows, 1)

	d, ok := ParseDate(got.Rows[0][2])
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("clients.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseNumber(t *testing.T) {
	tests := map[string]string{
		"150000":       "150000",
		" 150 000 ":    "150000",
		"150\u00a0000": "150000",
		"1 234,5":      "1234.5",
		"12.75":        "12.75",
	}
	for in, want := range tests {
		got, ok := ParseNumber(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got.String(), in)
	}
	for _, in := range []string{"", "abc", "12,3,4"} {
		_, ok := ParseNumber(in)
		assert.False(t, ok, in)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"45366", "2024-03-15", "15/03/2024", "15-03-2024", "2024/03/15", "2024-03-15T00:00:00Z"} {
		got, ok := ParseDate(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "demain", "31/31/2024", "-3"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestNormalizePhone(t *testing.T) {
	for _, in := range []string{"771234567", "77 123 45 67", "+221 77 123 45 67", "00221771234567", "221771234567", "0771234567"} {
		got, ok := NormalizePhone(in)
		require.True(t, ok, in)
		assert.Equal(t, "771234567", got, in)
	}
	for _, in := range []string{"", "12345", "791234567", "7712345678", "+33 6 12 34 56 78"} {
		_, ok := NormalizePhone(in)
		assert.False(t, ok, in)
	}
	got, ok := NormalizePhone("33 820 12 34")
	require.True(t, ok)
	assert.Equal(t, "338201234", got)
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("Awa"))
	assert.True(t, ValidName("N'Diaye"))
	assert.False(t, ValidName("A"))
	assert.False(t, ValidName("1234"))
	assert.False(t, ValidName("  "))
}

func TestValidCNI(t *testing.T) {
	assert.True(t, ValidCNI("1234567890123"))
	assert.True(t, ValidCNI("1 234 5678 90123"))
	assert.True(t, ValidCNI("AB34567890123"))
	assert.False(t, ValidCNI("123456789012"))
	assert.False(t, ValidCNI("12345678901234"))
}

func sheetOf(rows ...[]string) *Sheet {
	return &Sheet{Headers: frenchHeaders, Rows: rows}
}

func TestValidate_ValidRow(t *testing.T) {
	s := sheetOf([]string{"Awa", "Diop", "77 123 45 67", "awa@example.com", "1234567890123",
		"Appartement", "Sacré-Coeur 3", "01/01/2024", "150 000", "300000", "100000", "actif"})
	res := Validate(s, Guess(s.Headers, DefaultAliases()), Options{})

	require.Len(t, res.Valid, 1)
	assert.Empty(t, res.Invalid)
	row := res.Valid[0]
	assert.Equal(t, 2, row.Row)
	assert.Equal(t, domain.PropertyApartment, row.Record.PropertyType)
	assert.Equal(t, domain.ClientActive, row.Record.Status)
	assert.Equal(t, "150000", row.Record.MonthlyRent.String())
	assert.Equal(t, "2024-01-01T00:00:00.000Z", row.Record.StartDate.String())
	assert.Equal(t, "Prénom", res.Mapping["firstName"])
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	s := sheetOf([]string{"1", "", "12345", "not-an-email", "12", "", "", "", "-5", "", "", ""})
	res := Validate(s, Guess(s.Headers, DefaultAliases()), Options{RequireCNI: true})

	require.Len(t, res.Invalid, 1)
	assert.ElementsMatch(t, []string{
		"lastName: required",
		"firstName: invalid name",
		"phone: invalid Senegal phone number",
		"email: invalid address",
		"cni: must be 13 alphanumeric characters",
		"monthlyRent: must not be negative",
	}, res.Invalid[0].Errors)
}

func TestValidate_UnmappedRequiredColumns(t *testing.T) {
	s := &Sheet{Headers: []string{"Prénom"}, Rows: [][]string{{"Awa"}, {"Moussa"}}}
	res := Validate(s, Guess(s.Headers, DefaultAliases()), Options{})

	require.Len(t, res.Invalid, 2)
	for _, row := range res.Invalid {
		assert.Contains(t, row.Errors, "lastName: column not mapped")
		assert.Contains(t, row.Errors, "phone: column not mapped")
	}
}

func TestValidate_RequireCNI(t *testing.T) {
	s := sheetOf([]string{"Awa", "Diop", "771234567", "", "", "", "", "", "", "", "", ""})
	m := Guess(s.Headers, DefaultAliases())

	assert.Len(t, Validate(s, m, Options{}).Valid, 1)
	res := Validate(s, m, Options{RequireCNI: true})
	require.Len(t, res.Invalid, 1)
	assert.Equal(t, []string{"cni: required"}, res.Invalid[0].Errors)
}

func TestValidate_Duplicates(t *testing.T) {
	existing := []domain.Client{{ID: "client_1", Phone: "771234567", Email: "Awa@Example.com"}}
	s := sheetOf(
		[]string{"Awa", "Diop", "77 12 34 567", "", "", "", "", "", "", "", "", ""},
		[]string{"Fatou", "Sow", "77 12 34 567", "", "", "", "", "", "", "", "", ""},
		[]string{"", "", "", "", "", "", "", "", "", "", "", ""},
		[]string{"Moussa", "Ndiaye", "761112233", "moussa@example.com", "", "", "", "", "", "", "", ""},
		[]string{"Ibou", "Fall", "781112233", "MOUSSA@example.com", "", "", "", "", "", "", "", ""},
	)
	res := Validate(s, Guess(s.Headers, DefaultAliases()), Options{Existing: existing})

	require.Len(t, res.Valid, 1)
	assert.Equal(t, 5, res.Valid[0].Row)
	require.Len(t, res.Invalid, 3)

	first, second, fifth := res.Invalid[0], res.Invalid[1], res.Invalid[2]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, []string{"phone: duplicate of existing client"}, first.Errors)

	assert.Equal(t, 3, second.Row)
	assert.Contains(t, second.Errors, "phone: duplicate within file (row 2)")

	assert.Equal(t, 6, fifth.Row)
	assert.Equal(t, []string{"email: duplicate within file (row 5)"}, fifth.Errors)
}
