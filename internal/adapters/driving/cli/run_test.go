package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/stackup-cli/internal/core/domain"
)

func TestRunCmd_Use(t *testing.T) {
	assert.Equal(t, "run <project>", runCmd.Use)
}

func TestRunCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "", "run")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestRunCmd_HasFlags(t *testing.T) {
	for _, name := range []string{"description", "private", "region", "schema-file", "json"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "d", runCmd.Flags().Lookup("description").Shorthand)
}

func TestRunCmd_Completed(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.workflow.transitions = []domain.Transition{
		{Step: 1, Total: 2, Name: "Create repository", Phase: domain.PhaseInvoking},
		{Step: 1, Total: 2, Name: "Create repository", Phase: domain.PhaseDone},
		{Step: 2, Total: 2, Name: "Provision database", Phase: domain.PhaseDone},
	}

	out, err := executeCommand(t, "", "run", "acme", "--private", "--region", "aws-eu-central-1", "-d", "Acme app")

	require.NoError(t, err)
	assert.Equal(t, "acme", ts.workflow.req.Project)
	assert.True(t, ts.workflow.req.Private)
	assert.Equal(t, "aws-eu-central-1", ts.workflow.req.Region)
	assert.Equal(t, "Acme app", ts.workflow.req.Description)

	assert.Contains(t, out, "✓ [1/2] Create repository")
	assert.Contains(t, out, "✓ [2/2] Provision database")
	assert.Contains(t, out, "Run run-1 (completed, 3s)")
	assert.Contains(t, out, "github.full_name = octo/acme")
	assert.Contains(t, out, "neon.connection_string = (secret, not shown)")
	assert.NotContains(t, out, "s3cret")
}

func TestRunCmd_SchemaFile(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	path := filepath.Join(t.TempDir(), "schema.sql")
	require.NoError(t, os.WriteFile(path, []byte("CREATE TABLE notes (id int);"), 0o600))

	_, err := executeCommand(t, "", "run", "acme", "--schema-file", path)

	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE notes (id int);", ts.workflow.req.Schema)
}

func TestRunCmd_SchemaFileMissing(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand(t, "", "run", "acme", "--schema-file", filepath.Join(t.TempDir(), "nope.sql"))

	assert.ErrorContains(t, err, "reading schema file")
	assert.Empty(t, ts.workflow.req.Project, "workflow never started")
}

func TestRunCmd_MissingCredentials(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.workflow.report = nil
	ts.workflow.err = &domain.MissingCredentialsError{Service: "neon", Missing: []string{"NEON_API_KEY"}}

	out, err := executeCommand(t, "", "run", "acme")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing credentials for 1 service(s)")
	assert.Contains(t, out, "Missing credentials:")
	assert.Contains(t, out, "NEON_API_KEY")
}

func TestRunCmd_FailedStep(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.workflow.report = failedReport()
	ts.workflow.err = errStepFailed

	out, err := executeCommand(t, "", "run", "acme")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run run-2 failed at step 2")
	assert.Contains(t, out, "✗ [2/2] Provision database")
	assert.Contains(t, out, "quota exceeded")
}

func TestRunCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand(t, "", "run", "acme", "--json")

	require.NoError(t, err)
	var view reportView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "completed", view.State)
	assert.Equal(t, "github.create_repository", view.Steps[0].Tool)
	assert.Equal(t, []outputView{{Service: "github", Key: "full_name", Value: "octo/acme"}}, view.Outputs)
	assert.NotContains(t, out, "s3cret")
}

func TestRunCmd_NotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	workflowService = nil

	_, err := executeCommand(t, "", "run", "acme")

	assert.ErrorContains(t, err, "workflow service not configured")
}
