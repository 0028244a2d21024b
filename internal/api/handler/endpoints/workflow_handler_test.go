package endpoints

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clixen/internal/api/handler/mapper"
	"clixen/internal/api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// healRouter wires the heal endpoint behind a stub auth layer; healing needs
// neither the database nor the remote engine.
func healRouter() *gin.Engine {
	h := &workflowHandler{
		workflowService: service.NewWorkflowService(nil, nil),
		workflowMapper:  mapper.NewWorkflowMapper(),
	}
	r := gin.New()
	r.POST("/heal", func(c *gin.Context) {
		c.Set("userID", uint(1))
		c.Set("userIdentity", "abc12345-6789-4def-a012-3456789abcde")
		h.heal(c)
	})
	return r
}

func TestHealEndpoint_ResponseShape(t *testing.T) {
	body := `{"graph": {
		"name": "Email Workflow",
		"nodes": [{"id": "1", "name": "Hook", "kind": "trigger.webhook"}],
		"connections": {}
	}}`

	req := httptest.NewRequest(http.MethodPost, "/heal", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	healRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Graph      json.RawMessage     `json:"graph"`
		Fixes      []map[string]string `json:"fixes"`
		Confidence float64             `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.NotEmpty(t, resp.Graph)
	require.NotEmpty(t, resp.Fixes)
	for _, fix := range resp.Fixes {
		assert.Contains(t, fix, "rule")
		assert.Contains(t, fix, "target")
		assert.Contains(t, fix, "description")
	}
	assert.GreaterOrEqual(t, resp.Confidence, 0.80)
	assert.LessOrEqual(t, resp.Confidence, 0.95)

	var g struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(resp.Graph, &g))
	assert.True(t, strings.HasPrefix(g.Name, "[USR-abc12345]"), "got name %q", g.Name)
}

func TestHealEndpoint_Malformed(t *testing.T) {
	body := `{"graph": {"name": "Bad", "nodes": 42}}`

	req := httptest.NewRequest(http.MethodPost, "/heal", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	healRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed workflow")
}
