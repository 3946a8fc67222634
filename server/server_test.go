package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/document"
	"github.com/meikuraledutech/workflow/graph"
	"github.com/meikuraledutech/workflow/memory"
)

type harness struct {
	t     *testing.T
	srv   *Server
	store *graph.Store
	repo  *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := graph.New()
	repo := memory.New()
	return &harness{t: t, srv: New(store, repo), store: store, repo: repo}
}

func (h *harness) do(method, path string, body any) *http.Response {
	h.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(h.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.srv.App().Test(req)
	require.NoError(h.t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (h *harness) addNode(role workflow.Role, name string) string {
	h.t.Helper()
	cfg, err := workflow.NewNodeConfig(role)
	require.NoError(h.t, err)
	cfg.Name = name
	resp := h.do("POST", "/nodes", addNodeRequest{Role: role, Config: &cfg})
	require.Equal(h.t, http.StatusCreated, resp.StatusCode)
	return decode[map[string]string](h.t, resp)["id"]
}

func TestCatalog(t *testing.T) {
	h := newHarness(t)
	resp := h.do("GET", "/catalog", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := decode[workflow.Catalog](t, resp)
	assert.Equal(t, workflow.DefaultCatalog(), c)
}

func TestNodesAndEdges(t *testing.T) {
	h := newHarness(t)
	a := h.addNode(workflow.RoleAgent, "Agent 1")
	b := h.addNode(workflow.RoleSupervisor, "Supervisor 1")
	assert.Equal(t, "node_0", a)
	assert.Equal(t, "node_1", b)

	resp := h.do("POST", "/edges", connectRequest{Source: a, Target: b})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, workflow.NewEdge(a, b), decode[workflow.GraphEdge](t, resp))

	// Idempotent.
	resp = h.do("POST", "/edges", connectRequest{Source: a, Target: b})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	edges := decode[[]workflow.GraphEdge](t, h.do("GET", "/edges", nil))
	assert.Len(t, edges, 1)

	resp = h.do("POST", "/edges", connectRequest{Source: a, Target: a})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	nodes := decode[[]workflow.GraphNode](t, h.do("GET", "/nodes", nil))
	require.Len(t, nodes, 2)
	assert.Equal(t, "Supervisor 1", nodes[1].Data.Name)

	n := decode[workflow.GraphNode](t, h.do("GET", "/nodes/"+a, nil))
	assert.Equal(t, workflow.NodeTypeAgent, n.Type)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/nodes/ghost", nil).StatusCode)
}

func TestAddNode_Rejects(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusBadRequest, h.do("POST", "/nodes", `{"role": "ROBOT"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, h.do("POST", "/nodes", `not json`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		h.do("POST", "/nodes", `{"role": "AGENT", "config": {"type": "SUPERVISOR"}}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest,
		h.do("POST", "/nodes", `{"role": "AGENT", "config": {"type": "AGENT", "humans": [{"node_name": "h", "type": "TEXT"}]}}`).StatusCode)
	assert.Zero(t, h.store.Len())
}

func TestAddNode_Position(t *testing.T) {
	h := newHarness(t)
	resp := h.do("POST", "/nodes", `{"role": "SUPERVISOR", "position": {"x": 400, "y": 200}}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[map[string]string](t, resp)["id"]

	n, ok := h.store.Node(id)
	require.True(t, ok)
	assert.Equal(t, workflow.Position{X: 400, Y: 200}, n.Position)
}

func TestUpdateNode(t *testing.T) {
	h := newHarness(t)
	a := h.addNode(workflow.RoleAgent, "Agent 1")

	cfg := workflow.NodeConfig{Name: "Renamed", Spec: workflow.AgentSpec{Tools: []workflow.Tool{workflow.ToolGetOrderDetailsMF}}}
	require.Equal(t, http.StatusNoContent, h.do("PUT", "/nodes/"+a, cfg).StatusCode)
	n, _ := h.store.Node(a)
	assert.Equal(t, "Renamed", n.Data.Name)

	sup := workflow.NodeConfig{Name: "nope", Spec: workflow.SupervisorSpec{}}
	assert.Equal(t, http.StatusConflict, h.do("PUT", "/nodes/"+a, sup).StatusCode)
	assert.Equal(t, http.StatusNotFound, h.do("PUT", "/nodes/ghost", cfg).StatusCode)

	n, _ = h.store.Node(a)
	assert.Equal(t, "Renamed", n.Data.Name)
}

func TestMoveAndRemoveNode(t *testing.T) {
	h := newHarness(t)
	a := h.addNode(workflow.RoleAgent, "a")
	b := h.addNode(workflow.RoleAgent, "b")
	h.do("POST", "/edges", connectRequest{Source: a, Target: b})

	require.Equal(t, http.StatusNoContent, h.do("PUT", "/nodes/"+a+"/position", workflow.Position{X: 1, Y: 2}).StatusCode)
	n, _ := h.store.Node(a)
	assert.Equal(t, workflow.Position{X: 1, Y: 2}, n.Position)

	require.Equal(t, http.StatusNoContent, h.do("DELETE", "/nodes/"+b, nil).StatusCode)
	assert.Empty(t, h.store.Snapshot().Edges)
	assert.Equal(t, http.StatusNotFound, h.do("DELETE", "/nodes/"+b, nil).StatusCode)
}

func TestSelection(t *testing.T) {
	h := newHarness(t)
	sup := h.addNode(workflow.RoleSupervisor, "Supervisor 1")

	assert.Equal(t, http.StatusNoContent, h.do("GET", "/selection", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, h.do("PUT", "/selection", workflow.NodeConfig{Spec: workflow.SupervisorSpec{}}).StatusCode)

	require.Equal(t, http.StatusNoContent, h.do("POST", "/nodes/"+sup+"/select", nil).StatusCode)
	selected := decode[workflow.GraphNode](t, h.do("GET", "/selection", nil))
	assert.Equal(t, sup, selected.ID)

	cfg := workflow.NodeConfig{Name: "Supervisor 1", Spec: workflow.SupervisorSpec{}.AddHuman()}
	require.Equal(t, http.StatusNoContent, h.do("PUT", "/selection", cfg).StatusCode)
	n, _ := h.store.Node(sup)
	s, _ := n.Data.Supervisor()
	assert.Len(t, s.Humans, 1)

	require.Equal(t, http.StatusNoContent, h.do("DELETE", "/selection", nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, h.do("GET", "/selection", nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, h.do("POST", "/nodes/ghost/select", nil).StatusCode)
}

func TestExport(t *testing.T) {
	h := newHarness(t)
	a := h.addNode(workflow.RoleAgent, "Agent 1")
	b := h.addNode(workflow.RoleSupervisor, "Supervisor 1")
	h.do("POST", "/edges", connectRequest{Source: a, Target: b})

	resp := h.do("GET", "/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var env struct {
		WorkflowData struct {
			AdjacencyList map[string][]string `json:"adjacencyList"`
		} `json:"workflowData"`
		FlowState workflow.FlowState `json:"flowState"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, map[string][]string{"Agent 1": {"Supervisor 1"}}, env.WorkflowData.AdjacencyList)
	assert.Equal(t, h.store.Snapshot(), env.FlowState)

	resp = h.do("GET", "/export?format=mermaid", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "n0 --> n1")

	resp = h.do("GET", "/export?format=yaml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "adjacencyList:")

	assert.Equal(t, http.StatusBadRequest, h.do("GET", "/export?format=xml", nil).StatusCode)
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	h.addNode(workflow.RoleAgent, "Agent 1")

	resp := h.do("GET", "/export/download", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), document.FileName)
	assert.Equal(t, document.MIMEType, resp.Header.Get("Content-Type"))

	raw, _ := io.ReadAll(resp.Body)
	state, err := document.Decode(raw)
	require.NoError(t, err)
	assert.Len(t, state.Nodes, 1)
}

func TestImport_RawBody(t *testing.T) {
	src := newHarness(t)
	a := src.addNode(workflow.RoleAgent, "Agent 1")
	b := src.addNode(workflow.RoleSupervisor, "Supervisor 1")
	src.do("POST", "/edges", connectRequest{Source: a, Target: b})
	raw, err := document.Export(src.store).Marshal()
	require.NoError(t, err)

	dst := newHarness(t)
	require.Equal(t, http.StatusNoContent, dst.do("POST", "/import", string(raw)).StatusCode)
	assert.Equal(t, src.store.Snapshot(), dst.store.Snapshot())

	before := dst.store.Snapshot()
	assert.Equal(t, http.StatusBadRequest, dst.do("POST", "/import", `{}`).StatusCode)
	assert.Equal(t, before, dst.store.Snapshot())
}

func multipartRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImport_Multipart(t *testing.T) {
	h := newHarness(t)
	h.addNode(workflow.RoleAgent, "old")

	doc := `{"flowState": {"nodes": [], "edges": []}}`
	resp, err := h.srv.App().Test(multipartRequest(t, "workflow.txt", doc))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 1, h.store.Len())

	resp, err = h.srv.App().Test(multipartRequest(t, "workflow.json", doc))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, h.store.Len())
}

func TestClear(t *testing.T) {
	h := newHarness(t)
	h.addNode(workflow.RoleAgent, "a")
	require.Equal(t, http.StatusNoContent, h.do("DELETE", "/workflow", nil).StatusCode)
	assert.Zero(t, h.store.Len())

	// Identities keep counting after a clear.
	assert.Equal(t, "node_1", h.addNode(workflow.RoleAgent, "b"))
}

func TestWorkflows(t *testing.T) {
	h := newHarness(t)
	a := h.addNode(workflow.RoleAgent, "Agent 1")
	b := h.addNode(workflow.RoleSupervisor, "Supervisor 1")
	h.do("POST", "/edges", connectRequest{Source: a, Target: b})
	saved := h.store.Snapshot()

	resp := h.do("POST", "/workflows", saveRequest{Name: "demo"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sum := decode[workflow.Summary](t, resp)
	assert.NotEmpty(t, sum.ID)
	assert.Equal(t, 2, sum.Nodes)
	assert.Equal(t, 1, sum.Edges)

	list := decode[[]workflow.Summary](t, h.do("GET", "/workflows", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "demo", list[0].Name)

	resp = h.do("GET", "/workflows/"+sum.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	state, err := document.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, saved, state)

	h.do("DELETE", "/workflow", nil)
	require.Equal(t, http.StatusNoContent, h.do("POST", "/workflows/"+sum.ID+"/load", nil).StatusCode)
	assert.Equal(t, saved, h.store.Snapshot())

	require.Equal(t, http.StatusNoContent, h.do("DELETE", "/workflows/"+sum.ID, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, h.do("GET", "/workflows/"+sum.ID, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, h.do("POST", "/workflows/"+sum.ID+"/load", nil).StatusCode)
}

func TestWorkflows_SaveWithoutBody(t *testing.T) {
	h := newHarness(t)
	resp := h.do("POST", "/workflows", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Zero(t, decode[workflow.Summary](t, resp).Nodes)
}

func TestMetrics(t *testing.T) {
	h := newHarness(t)
	h.addNode(workflow.RoleAgent, "a")

	resp := h.do("GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `workflow_graph_mutations_total{op="add_node",result="ok"} 1`)
	assert.Contains(t, string(body), "workflow_graph_nodes 1")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 422, statusOf(workflow.ErrInvalidConnection))
	assert.Equal(t, 404, statusOf(workflow.ErrUnknownNode))
	assert.Equal(t, 404, statusOf(workflow.ErrWorkflowNotFound))
	assert.Equal(t, 409, statusOf(workflow.ErrInvalidRoleChange))
	assert.Equal(t, 400, statusOf(workflow.ErrInvalidConfig))
	assert.Equal(t, 400, statusOf(workflow.ErrMalformedDocument))
	assert.Equal(t, 500, statusOf(io.ErrUnexpectedEOF))
}
