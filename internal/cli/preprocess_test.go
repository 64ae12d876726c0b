package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessYAML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
		wantErr  string
	}{
		{
			name:     "simple environment variable substitution",
			input:    "projectshortname: {{ .ENV.VC_PROJECT }}",
			envVars:  map[string]string{"VC_PROJECT": "p1"},
			expected: "projectshortname: p1",
		},
		{
			name:     "multiple environment variables",
			input:    "dpname: {{ .ENV.VC_DP }}\ndsname: {{ .ENV.VC_DS }}",
			envVars:  map[string]string{"VC_DP": "sales", "VC_DS": "orders"},
			expected: "dpname: sales\ndsname: orders",
		},
		{
			name:     "value with equals sign",
			input:    "tenantid: {{ .ENV.VC_TENANT }}",
			envVars:  map[string]string{"VC_TENANT": "a=b"},
			expected: "tenantid: a=b",
		},
		{
			name:     "empty environment variable",
			input:    "bkcarea: {{ .ENV.VC_EMPTY }}",
			envVars:  map[string]string{"VC_EMPTY": ""},
			expected: "bkcarea: ",
		},
		{
			name:     "no template variables",
			input:    "kind: dh\nspec:\n  compname: customer",
			expected: "kind: dh\nspec:\n  compname: customer",
		},
		{
			name:    "missing environment variable",
			input:   "compname: {{ .ENV.VC_DOES_NOT_EXIST }}",
			wantErr: "missing environment variable: VC_DOES_NOT_EXIST",
		},
		{
			name:    "invalid template syntax",
			input:   "compname: {{ .ENV.VC_PROJECT }",
			envVars: map[string]string{"VC_PROJECT": "p1"},
			wantErr: "template error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			result, err := PreprocessYAML([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestPreprocessYAMLWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VC_FILE_DP=from_env_file\nVC_FILE_DS=orders\n"), 0o644))
	t.Setenv("VC_FILE_DP", "from_environment")
	t.Cleanup(func() { os.Unsetenv("VC_FILE_DS") })

	input := "dpname: {{ .ENV.VC_FILE_DP }}\ndsname: {{ .ENV.VC_FILE_DS }}"
	result, err := PreprocessYAML([]byte(input), dir)
	require.NoError(t, err)
	assert.Equal(t, "dpname: from_environment\ndsname: orders", string(result))
}
