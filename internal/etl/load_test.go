package etl

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crime-etl/internal/fetcher"
)

const (
	rowTheft   = `1,HZ1,05/03/2016 11:40:00 PM,013XX S SAWYER AVE,0820,theft ,$500 AND UNDER,street,false,false,1022,10,24,29,41.86,-87.70`
	rowBattery = `2,HZ2,05/04/2016 09:00:00 AM,001XX N STATE ST,0486,BATTERY,DOMESTIC BATTERY SIMPLE,APARTMENT,true,true,111,1,42,32,41.88,-87.62`
)

func TestLoadLocalCSV(t *testing.T) {
	path := writeCSV(t, "crimes.csv", rowTheft, rowBattery)

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"IUCR"}, tbl.ExtraColumns)
	assert.Equal(t, "theft ", tbl.Rows[0].PrimaryType) // normalization is the cleaner's job
	assert.Equal(t, "$500 AND UNDER", tbl.Rows[0].Description)
	assert.True(t, *tbl.Rows[1].Domestic)
}

func TestLoadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	require.NoError(t, os.WriteFile(path, []byte("\ufeff"+testHeader+"\n"+rowTheft+"\n"), 0o644))

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "1", tbl.Rows[0].ID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: filepath.Join(t.TempDir(), "nope.csv")})
	require.Error(t, err)
	assert.True(t, IsFileAccess(err))
	assert.False(t, IsParse(err))
}

func TestLoadDirectory(t *testing.T) {
	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: t.TempDir()})
	require.Error(t, err)
	assert.True(t, IsFileAccess(err))
}

func TestLoadMalformedCSV(t *testing.T) {
	path := writeCSV(t, "bad.csv", rowTheft, `3,HZ3,"05/04/2016,unterminated`)

	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.Error(t, err)
	assert.True(t, IsParse(err))
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.Error(t, err)
	assert.True(t, IsParse(err))
}

func TestLoadMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cols.csv")
	require.NoError(t, os.WriteFile(path, []byte("ID,Date\n1,05/03/2016\n"), 0o644))

	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.Error(t, err)
	assert.True(t, IsParse(err))
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestLoadHeaderOnly(t *testing.T) {
	path := writeCSV(t, "header.csv")

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestLoadLazyQuotes(t *testing.T) {
	bare := `3,HZ3,05/05/2016 10:00:00 AM,002XX W LAKE ST,0810,THEFT,12" TV,STORE,false,false,111,1,42,32,41.88,-87.63`
	path := writeCSV(t, "crimes.csv", rowTheft, bare)

	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.Error(t, err)
	assert.True(t, IsParse(err))

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path, LazyQuotes: true})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, `12" TV`, tbl.Rows[1].Description)
}

func TestLoadCustomDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crimes.tsv")
	content := "ID\tCase Number\tDate\tBlock\tPrimary Type\tDescription\tLocation Description\tArrest\tDomestic\tBeat\tDistrict\tWard\tCommunity Area\tLatitude\tLongitude\n" +
		"7\tHZ7\t05/03/2016\tX\tTHEFT\tD\tSTREET\tfalse\tfalse\t1\t2\t3\t4\t41.9\t-87.6\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "HZ7", tbl.Rows[0].CaseNumber)
	assert.Equal(t, 4, *tbl.Rows[0].CommunityArea)
}

func TestLoadInvalidDelimiter(t *testing.T) {
	path := writeCSV(t, "crimes.csv", rowTheft)

	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path, Delimiter: ";;"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "single character")
}

func TestLoadZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "crimes.zip")

	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("Chicago_Crimes.csv")
	require.NoError(t, err)
	_, err = w.Write([]byte(testHeader + "\n" + rowTheft + "\n" + rowBattery + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: zipPath})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	body := `[
		{"id":"1","case_number":"HZ1","date":"2016-05-03T23:40:00.000","block":"013XX S SAWYER AVE","iucr":"0820",
		 "primary_type":"THEFT","description":"$500 AND UNDER","location_description":"STREET","arrest":false,
		 "domestic":false,"beat":"1022","district":"010","ward":24,"community_area":"29",
		 "latitude":"41.86","longitude":"-87.70"},
		{"id":"2","case_number":"HZ2","date":"2016-05-04T09:00:00.000","block":"001XX N STATE ST","iucr":"0486",
		 "primary_type":"BATTERY","description":"DOMESTIC BATTERY SIMPLE","location_description":"APARTMENT","arrest":true,
		 "domestic":true,"beat":"0111","district":"001","ward":42,"community_area":"32"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tbl, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"iucr"}, tbl.ExtraColumns)

	first := tbl.Rows[0]
	assert.Equal(t, "HZ1", first.CaseNumber)
	require.NotNil(t, first.Date)
	assert.Equal(t, 23, first.Date.Hour())
	require.NotNil(t, first.Ward)
	assert.Equal(t, 24, *first.Ward)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 41.86, *first.Latitude, 1e-9)

	// Keys absent from an object load as nulls.
	assert.Nil(t, tbl.Rows[1].Latitude)
	assert.True(t, *tbl.Rows[1].Arrest)
}

func TestLoadJSONNotArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"1"}`), 0o644))

	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: path})
	require.Error(t, err)
	assert.True(t, IsParse(err))
}

func TestLoadHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(testHeader + "\n" + rowTheft + "\n"))
	}))
	defer srv.Close()

	loader := NewLoader(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), nil)
	tbl, err := loader.Load(context.Background(), Source{Path: srv.URL + "/crimes.csv", TempDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestLoadHTTPNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	loader := NewLoader(fetcher.NewHTTPFetcher(fetcher.HTTPOptions{}), nil)
	_, err := loader.Load(context.Background(), Source{Path: srv.URL + "/missing.csv", TempDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, IsFileAccess(err))
}

func TestLoadRemoteWithoutFetcher(t *testing.T) {
	_, err := NewLoader(nil, nil).Load(context.Background(), Source{Path: "ftp://example.com/crimes.csv"})
	require.Error(t, err)
	assert.True(t, IsFileAccess(err))
}

func TestDelimiterRune(t *testing.T) {
	tests := []struct {
		delim, name string
		want        rune
	}{
		{"", "a.csv", ','},
		{"", "a.TSV", '\t'},
		{`\t`, "a.csv", '\t'},
		{"tab", "a.csv", '\t'},
		{"|", "a.csv", '|'},
		{";", "a.tsv", ';'},
	}
	for _, tt := range tests {
		got, err := delimiterRune(tt.delim, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%q %q", tt.delim, tt.name)
	}
}
