package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/chinmay1088/rpchist/api"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// run executes the CLI with an isolated home directory and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("RPCHIST_URL", "")

	root, a := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := a.execute(t.Context(), root)
	return stdout.String(), err
}

type requestLog struct {
	mu   sync.Mutex
	uris []string
}

func (l *requestLog) add(uri string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uris = append(l.uris, uri)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.uris...)
}

func fixedServer(t *testing.T, status int, body string) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.RequestURI())
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

// historyServer serves total signatures named sig<N>, newest first, honouring
// limit and before the way the history service does.
func historyServer(t *testing.T, total int) (*httptest.Server, *requestLog) {
	t.Helper()
	log := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.add(r.URL.RequestURI())

		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		start := total
		if before := r.URL.Query().Get("before"); before != "" {
			start, _ = strconv.Atoi(strings.TrimPrefix(before, "sig"))
			start--
		}

		page := []map[string]any{}
		for n := start; n >= 1 && len(page) < limit; n-- {
			page = append(page, map[string]any{
				"signature": fmt.Sprintf("sig%d", n),
				"slot":      1000 + n,
				"blockTime": 1700000000 + n,
			})
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func TestBlockCommand(t *testing.T) {
	srv, log := fixedServer(t, http.StatusOK, `{
		"slot": 42,
		"blockhash": "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		"parentSlot": 41,
		"blockTime": 1700000000,
		"blockHeight": 40,
		"transactions": ["a", "b"]
	}`)

	t.Run("text", func(t *testing.T) {
		out, err := run(t, "block", "42", "--url", srv.URL, "-o", "text")
		require.NoError(t, err)
		assert.Contains(t, out, "📦 Block 42")
		assert.Contains(t, out, "Blockhash:    9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin")
		assert.Contains(t, out, "Parent slot:  41")
		assert.Contains(t, out, "Time:         2023-11-14 22:13:20 UTC")
		assert.Contains(t, out, "Transactions: 2")
		assert.Equal(t, "/block/42?commitment=finalized", log.all()[len(log.all())-1])
	})

	t.Run("json keeps payload", func(t *testing.T) {
		out, err := run(t, "block", "42", "--url", srv.URL, "-o", "json", "-c", "confirmed")
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &payload))
		assert.Equal(t, float64(42), payload["slot"])
		assert.Equal(t, []any{"a", "b"}, payload["transactions"])
		assert.Equal(t, "/block/42?commitment=confirmed", log.all()[len(log.all())-1])
	})

	t.Run("invalid slot", func(t *testing.T) {
		before := len(log.all())
		_, err := run(t, "block", "not-a-slot", "--url", srv.URL)
		require.Error(t, err)
		assert.Len(t, log.all(), before)
	})
}

func TestBlockCommandErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		srv, _ := fixedServer(t, http.StatusNotFound, `{"error":"not found"}`)
		_, err := run(t, "block", "7", "--url", srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "block 7 not found")
		assert.True(t, api.IsNotFound(err))
	})

	t.Run("not json", func(t *testing.T) {
		srv, _ := fixedServer(t, http.StatusOK, `not json`)
		_, err := run(t, "block", "7", "--url", srv.URL)
		var decodeErr *api.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("invalid output format", func(t *testing.T) {
		_, err := run(t, "block", "7", "-o", "xml")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid output format")
	})
}

func TestTxCommand(t *testing.T) {
	srv, log := fixedServer(t, http.StatusOK, `{
		"signature": "5sig",
		"slot": 100,
		"blockTime": 1700000000,
		"signer": "Signer1111",
		"fee": 5000,
		"computeConsumed": 1200,
		"err": {"InstructionError": [0, "Custom"]}
	}`)

	out, err := run(t, "tx", "5sig", "--url", srv.URL, "-o", "text", "--commitment", "confirmed")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tx/5sig?commitment=confirmed"}, log.all())
	assert.Contains(t, out, "🧾 Transaction 5sig")
	assert.Contains(t, out, "Status:        failed")
	assert.Contains(t, out, "Fee:           0.000005 SOL")
	assert.Contains(t, out, "Compute units: 1200")
}

func TestTxCommandStrict(t *testing.T) {
	srv, log := fixedServer(t, http.StatusOK, `{}`)

	_, err := run(t, "tx", "not-a-signature", "--url", srv.URL, "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
	assert.Empty(t, log.all())
}

func TestSigsCommand(t *testing.T) {
	srv, log := historyServer(t, 5)

	out, err := run(t, "sigs", "Addr1", "--url", srv.URL, "-o", "text", "--limit", "2", "--pages", "2")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/sigs/Addr1?limit=2",
		"/sigs/Addr1?before=sig4&limit=2",
	}, log.all())
	for _, sig := range []string{"sig5", "sig4", "sig3", "sig2"} {
		assert.Contains(t, out, sig)
	}
	assert.Contains(t, out, "Older signatures: --before sig2")
}

func TestSigsCommandQuiet(t *testing.T) {
	srv, _ := historyServer(t, 5)

	out, err := run(t, "sigs", "Addr1", "--url", srv.URL, "-o", "text", "--limit", "2", "-q")
	require.NoError(t, err)
	assert.Contains(t, out, "sig5")
	assert.NotContains(t, out, "Loaded")
	assert.NotContains(t, out, "Older signatures")
}

func TestSigsCommandJSON(t *testing.T) {
	srv, log := historyServer(t, 3)

	out, err := run(t, "sigs", "Addr1", "--url", srv.URL, "-o", "json", "--until", "sig1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/sigs/Addr1?limit=100&until=sig1"}, log.all())

	var records []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 3)
	assert.Equal(t, "sig3", records[0]["signature"])
}

func TestSigsCommandValidation(t *testing.T) {
	srv, log := historyServer(t, 3)

	for name, args := range map[string][]string{
		"limit too small": {"--limit", "0"},
		"limit too large": {"--limit", "1001"},
		"pages too large": {"--pages", "51"},
		"strict cursor":   {"--strict", "--before", "nope0"},
		"strict address":  {"--strict"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, append([]string{"sigs", "bad-address0", "--url", srv.URL}, args...)...)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, log.all())
}

type fakeLister struct {
	pages [][]api.Object
	calls []api.SignaturesOptions
	err   error
}

func (f *fakeLister) GetSignaturesForAddress(_ context.Context, _ string, opts api.SignaturesOptions) ([]api.Object, error) {
	f.calls = append(f.calls, opts)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.calls) > len(f.pages) {
		return nil, nil
	}
	return f.pages[len(f.calls)-1], nil
}

func records(sigs ...string) []api.Object {
	out := make([]api.Object, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, api.Object{"signature": sig})
	}
	return out
}

func TestFetchSignaturePages(t *testing.T) {
	t.Run("chains before cursors", func(t *testing.T) {
		lister := &fakeLister{pages: [][]api.Object{
			records("s6", "s5"),
			records("s4", "s3"),
			records("s2", "s1"),
		}}
		var seen []int
		got, err := fetchSignaturePages(t.Context(), lister, "addr",
			pageOptions{limit: 2, pages: 3, until: "s0"},
			func(page int, _ []api.Object) { seen = append(seen, page) })
		require.NoError(t, err)

		assert.Len(t, got, 6)
		assert.Equal(t, []int{1, 2, 3}, seen)
		assert.Equal(t, []api.SignaturesOptions{
			{Limit: 2, Until: "s0"},
			{Limit: 2, Before: "s5", Until: "s0"},
			{Limit: 2, Before: "s3", Until: "s0"},
		}, lister.calls)
	})

	t.Run("starts from given cursor", func(t *testing.T) {
		lister := &fakeLister{pages: [][]api.Object{records("s4")}}
		_, err := fetchSignaturePages(t.Context(), lister, "addr", pageOptions{limit: 2, pages: 3, before: "s5"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []api.SignaturesOptions{{Limit: 2, Before: "s5"}}, lister.calls)
	})

	t.Run("stops on short page", func(t *testing.T) {
		lister := &fakeLister{pages: [][]api.Object{
			records("s4", "s3"),
			records("s2"),
			records("never"),
		}}
		got, err := fetchSignaturePages(t.Context(), lister, "addr", pageOptions{limit: 2, pages: 5}, nil)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.Len(t, lister.calls, 2)
	})

	t.Run("stops without a cursor to continue from", func(t *testing.T) {
		lister := &fakeLister{pages: [][]api.Object{
			{{"signature": "s2"}, {"slot": 1}},
			records("never"),
		}}
		_, err := fetchSignaturePages(t.Context(), lister, "addr", pageOptions{limit: 2, pages: 5}, nil)
		require.NoError(t, err)
		assert.Len(t, lister.calls, 1)
	})

	t.Run("returns errors", func(t *testing.T) {
		lister := &fakeLister{err: &api.HTTPError{StatusCode: http.StatusBadGateway}}
		_, err := fetchSignaturePages(t.Context(), lister, "addr", pageOptions{limit: 2, pages: 5}, nil)
		var httpErr *api.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Len(t, lister.calls, 1)
	})
}

func TestExportCommand(t *testing.T) {
	srv, _ := historyServer(t, 5)
	outDir := t.TempDir()

	out, err := run(t, "export", "Addr1", "--url", srv.URL, "-q",
		"--limit", "2", "--pages", "10", "--csv", "--json", "--txt", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 5 signatures")

	csvFiles, err := filepath.Glob(filepath.Join(outDir, "*.csv"))
	require.NoError(t, err)
	require.Len(t, csvFiles, 1)

	f, err := os.Open(csvFiles[0])
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"signature", "slot", "block_time", "status", "memo"}, rows[0])
	assert.Equal(t, []string{"sig5", "1005", "2023-11-14T22:13:25Z", "success", ""}, rows[1])

	jsonFiles, err := filepath.Glob(filepath.Join(outDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, jsonFiles, 1)
	data, err := os.ReadFile(jsonFiles[0])
	require.NoError(t, err)
	var exported ExportData
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "Addr1", exported.Address)
	assert.Equal(t, srv.URL, exported.Service)
	assert.Equal(t, 5, exported.Count)
	assert.Equal(t, "sig1", exported.Signatures[4].Signature)

	txtFiles, err := filepath.Glob(filepath.Join(outDir, "*.txt"))
	require.NoError(t, err)
	require.Len(t, txtFiles, 1)
	txt, err := os.ReadFile(txtFiles[0])
	require.NoError(t, err)
	assert.Contains(t, string(txt), "Signatures (5):")
}

func TestEndpointCommand(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "rpchist.yaml")

	out, err := run(t, "endpoint", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Current endpoint: "+api.DefaultBaseURL)

	out, err = run(t, "endpoint", "http://hist.internal:9000/", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Switched to http://hist.internal:9000")

	saved, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "url: http://hist.internal:9000\n")

	out, err = run(t, "endpoint", "--config", cfgFile, "--show-config")
	require.NoError(t, err)
	assert.YAMLEq(t, "url: http://hist.internal:9000\ntimeout: 10s\ncommitment: finalized\n", out)

	_, err = run(t, "endpoint", "not a url", "--config", cfgFile)
	assert.Error(t, err)
}

func TestEndpointKeepsOverridesOutOfFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "rpchist.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("url: http://old:8080\ntimeout: 3s\n"), 0600))
	t.Setenv("RPCHIST_COMMITMENT", "processed")

	_, err := run(t, "endpoint", "http://hist.internal:9000", "--config", cfgFile, "-t", "1ms")
	require.NoError(t, err)

	saved, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.YAMLEq(t, "url: http://hist.internal:9000\ntimeout: 3s\ncommitment: finalized\n", string(saved))
}

func TestTeardownAfterFailedRequest(t *testing.T) {
	srv, log := fixedServer(t, http.StatusInternalServerError, "")
	t.Setenv("HOME", t.TempDir())

	root, a := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"block", "1", "--url", srv.URL})

	err := a.execute(t.Context(), root)
	var httpErr *api.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Len(t, log.all(), 1)
	assert.Nil(t, a.client)
}

func TestConfigFileDrivesRequests(t *testing.T) {
	srv, log := fixedServer(t, http.StatusOK, `{"slot":1}`)
	cfgFile := filepath.Join(t.TempDir(), "rpchist.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("url: "+srv.URL+"\ncommitment: processed\n"), 0600))

	_, err := run(t, "block", "1", "--config", cfgFile, "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, []string{"/block/1?commitment=processed"}, log.all())
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rpchist v"+version+"\n", out)
}
