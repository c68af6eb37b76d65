package cli

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrugsSearchCmd_Table(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/drugs/search", r.URL.Path)
		assert.Equal(t, "aspir", r.URL.Query().Get("query"))
		w.Write([]byte(`{"query":"aspir","results":[{"name":"Aspirin","formula":"C9H8O4","target":"PTGS1","max_phase":4}]}`))
	})

	stdout, _, err := runCommand(t, handler, "table", "drugs", "search", "aspir")
	require.NoError(t, err)
	assert.Contains(t, stdout, "NAME")
	assert.Contains(t, stdout, "Aspirin")
	assert.Contains(t, stdout, "PTGS1")
}

func TestDrugsSearchCmd_CorrectionNotice(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"query":"asprin","corrected":"aspirin","results":[{"name":"Aspirin"}]}`))
	})

	_, stderr, err := runCommand(t, handler, "json", "drugs", "search", "asprin")
	require.NoError(t, err)
	assert.Contains(t, stderr, `"aspirin"`)
}

func TestDrugsGetCmd_JSON(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/drugs/metformin", r.URL.Path)
		w.Write([]byte(`{"name":"Metformin","indication":"type 2 diabetes"}`))
	})

	stdout, _, err := runCommand(t, handler, "json", "drugs", "get", "metformin")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"name": "Metformin"`)
}

func TestDrugsNamesCmd_Text(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"names":["Aspirin","Metformin"]}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "drugs", "names")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Aspirin\nMetformin")
}

func TestDrugsCompareCmd_Table(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aspirin", r.URL.Query().Get("drug1"))
		w.Write([]byte(`{"points":[{"property":"mechanism","value1":"COX inhibition","value2":"COX inhibition","summary":"shared"}]}`))
	})

	stdout, _, err := runCommand(t, handler, "table", "drugs", "compare", "aspirin", "ibuprofen")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROPERTY")
	assert.Contains(t, stdout, "COX inhibition")
}

func TestPredictCmd_Table(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/predict/targets", r.URL.Path)
		w.Write([]byte(`{"query":"aspirin","predicted_targets":[{"target":"PTGS1","support_count":3,"max_similarity":0.91,"confidence":0.88}]}`))
	})

	stdout, _, err := runCommand(t, handler, "table", "predict", "aspirin", "--top-k", "5")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PTGS1")
	assert.Contains(t, stdout, "0.910")
}

func TestMolBlockCmd_RequiresInput(t *testing.T) {
	_, _, err := runCommand(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), "text", "molblock")
	assert.Error(t, err)
}

func TestMolBlockCmd_Text(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"smiles":"CCO","molblock":"ethanol block"}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "molblock", "--smiles", "CCO")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ethanol block")
}

func TestAskCmd_Brief(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chatbot", r.URL.Path)
		w.Write([]byte(`{"answer":"Short answer."}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "ask", "--brief", "aspirin", "dose?")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Short answer.")
}

func TestAskCmd_Copilot(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/copilot", r.URL.Path)
		w.Write([]byte(`{"answer":"Longer answer."}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "ask", "what", "treats", "migraine?")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Longer answer.")
}

func TestInsightGraphCmd_Text(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/kg/aspirin", r.URL.Path)
		w.Write([]byte(`{"drug":"Aspirin","nodes":[{"id":"aspirin"},{"id":"pain"}],"edges":[{"from":"aspirin","to":"pain","relation":"MAY_TREAT"}]}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "insight", "graph", "aspirin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "aspirin -[MAY_TREAT]-> pain")
}

func TestPrescriptionUploadCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(path, []byte("fake-png"), 0o600))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/prescriptions", r.URL.Path)
		assert.Equal(t, "gemini", r.FormValue("mode"))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"rx-1","status":"completed"}`))
	})

	stdout, _, err := runCommand(t, handler, "json", "prescription", "upload", path, "--mode", "gemini")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"status": "completed"`)
}

func TestPrescriptionUploadCmd_AsyncNotice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.jpg")
	require.NoError(t, os.WriteFile(path, []byte("fake-jpeg"), 0o600))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"rx-2","status":"pending"}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "prescription", "upload", path, "--async")
	require.NoError(t, err)
	assert.Contains(t, stdout, "rx-2")
	assert.Contains(t, stdout, "pending")
}

func TestPrescriptionInteractionsCmd_Text(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"drugs":["warfarin","aspirin"],"warnings":[{"drug1":"warfarin","drug2":"aspirin","severity":"major","description":"bleeding risk"}]}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "prescription", "interactions", "warfarin", "aspirin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "[MAJOR] warfarin + aspirin: bleeding risk")
}

func TestPrescriptionInteractionsCmd_NoWarnings(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"drugs":["aspirin","metformin"],"warnings":[]}`))
	})

	stdout, _, err := runCommand(t, handler, "text", "prescription", "interactions", "aspirin", "metformin")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No known interactions found.")
}
