package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_Basic(t *testing.T) {
	input := "ID,Block\n1,001XX N STATE ST\n2,002XX W MADISON ST\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Block"}, rows[0])
	assert.Equal(t, []string{"2", "002XX W MADISON ST"}, rows[2])
}

func TestStreamCSV_PipeDelimited(t *testing.T) {
	input := "a|b|c\n1|2|3\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: '|'})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestStreamCSV_RaggedRowsAllowed(t *testing.T) {
	input := "a,b,c\n1,2\n"
	rows, err := ReadAll(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2"}, rows[1])
}

func TestStreamCSV_MalformedQuote(t *testing.T) {
	input := "a,b\n\"unterminated,2\n"
	_, err := ReadAll(context.Background(), strings.NewReader(input), CSVOptions{})
	require.Error(t, err)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Positive(t, pe.Line)
}

func TestStreamCSV_LazyQuotes(t *testing.T) {
	input := "block,description\n001XX N STATE ST,12\" TV\n"

	_, err := ReadAll(context.Background(), strings.NewReader(input), CSVOptions{})
	require.Error(t, err)

	rows, err := ReadAll(context.Background(), strings.NewReader(input), CSVOptions{LazyQuotes: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, `12" TV`, rows[1][1])
}

func TestStreamCSV_Windows1252(t *testing.T) {
	// 0xC9 is "É" in windows-1252.
	input := "block\n" + string([]byte{'C', 0xC9, 'R', 'M', 'A', 'K', '\n'})
	rows, err := ReadAll(context.Background(), strings.NewReader(input), CSVOptions{Encoding: "windows-1252"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CÉRMAK", rows[1][0])
}

func TestStreamCSV_UnknownEncoding(t *testing.T) {
	_, err := ReadAll(context.Background(), strings.NewReader("a\n"), CSVOptions{Encoding: "klingon"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestStreamCSV_ContextCancellation(t *testing.T) {
	var sb strings.Builder
	for range 10000 {
		sb.WriteString("a,b,c\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})

	count := 0
	for range rowCh {
		count++
		if count >= 5 {
			cancel()
			break
		}
	}
	for range rowCh {
	}

	var gotErr error
	for err := range errCh {
		if err != nil {
			gotErr = err
		}
	}
	// Either cancelled, or the goroutine finished before noticing.
	if gotErr != nil {
		assert.Contains(t, gotErr.Error(), "context cancelled")
	}
}

func TestStreamCSV_Empty(t *testing.T) {
	rows, err := ReadAll(context.Background(), strings.NewReader(""), CSVOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
