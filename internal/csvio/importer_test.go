package csvio

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/clientkeeper/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImport_MissingAmountSkipsOnlyThatRow(t *testing.T) {
	in := strings.Join([]string{
		"name,username,purchase_date,expiration_date,amount,device,note",
		"Ana,ana01,2024-01-01,2024-02-01,15,\"Android, LG ,\",",
		"Luis,luis77,2024-01-05,2024-02-05,,FireTV,call first",
		"Eva,eva,01/10/2024,02/10/2024,20.5,,",
	}, "\n")

	res, err := ParseImport(strings.NewReader(in), "admin-1")
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, RowError{Row: 3, Reason: ReasonIncomplete}, res.Errors[0])
	assert.Equal(t, "row 3: incomplete data", res.Errors[0].Error())

	require.Len(t, res.Records, 2)
	ana := res.Records[0]
	assert.Equal(t, "Ana", ana.Name)
	assert.Equal(t, "admin-1", ana.OwnerID)
	assert.Equal(t, record.NewDate(2024, 1, 1), ana.PurchaseDate)
	assert.Equal(t, []string{"Android", "LG"}, ana.Device)
	assert.Equal(t, 15.0, ana.Amount)
	assert.Nil(t, ana.Note)
	assert.Nil(t, ana.Phone)

	eva := res.Records[1]
	assert.Equal(t, record.NewDate(2024, 2, 10), eva.ExpirationDate)
	assert.Equal(t, 20.5, eva.Amount)
	assert.Equal(t, []string{}, eva.Device)
}

func TestParseImport_FormatErrors(t *testing.T) {
	in := strings.Join([]string{
		"name,username,purchase_date,expiration_date,amount",
		"A,a,not-a-date,2024-02-01,10",
		"B,b,2024-01-01,2024-02-01,ten",
		"C,c,2024-01-01,2024-02-01,-3",
		"D,d,2024-01-01,2024-02-01,NaN",
		"E,e,2024-01-01,2024-02-01,7",
	}, "\n")

	res, err := ParseImport(strings.NewReader(in), "admin")
	require.NoError(t, err)
	require.Len(t, res.Errors, 4)
	for i, e := range res.Errors {
		assert.Equal(t, i+2, e.Row)
		assert.True(t, strings.HasPrefix(e.Reason, ReasonFormat), e.Reason)
	}
	require.Len(t, res.Records, 1)
	assert.Equal(t, "E", res.Records[0].Name)
}

func TestParseImport_HeaderNormalisation(t *testing.T) {
	in := "\ufeff Name ,USERNAME,Purchase_Date,expiration_date,Amount,Owner_ID,extra\n" +
		"Zoe,zoe,2024-03-01,2024-04-01,5,owner-9,ignored\n"

	res, err := ParseImport(strings.NewReader(in), "admin")
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Zoe", res.Records[0].Name)
	assert.Equal(t, "owner-9", res.Records[0].OwnerID)
}

func TestParseImport_BlankRowsKeepNumbering(t *testing.T) {
	in := "name,username,purchase_date,expiration_date,amount\n" +
		",,,,\n" +
		"X,x,2024-01-01,,1\n"

	res, err := ParseImport(strings.NewReader(in), "admin")
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, []RowError{{Row: 3, Reason: ReasonIncomplete}}, res.Errors)
}

func TestParseImport_EmptyLinesNotCounted(t *testing.T) {
	in := "name,username,purchase_date,expiration_date,amount\n" +
		"\n" +
		"X,x,2024-01-01,,1\n"

	res, err := ParseImport(strings.NewReader(in), "admin")
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, []RowError{{Row: 2, Reason: ReasonIncomplete}}, res.Errors, "row numbers follow data records, not file lines")
}

func TestParseImport_NoHeader(t *testing.T) {
	_, err := ParseImport(strings.NewReader(""), "admin")
	assert.ErrorIs(t, err, ErrNoHeader)
}
