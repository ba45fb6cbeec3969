// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"testing"

	"bringup/internal/testutil"
)

func TestRunEnvGet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeProjectFile(t, dir, ".env", "DB_USER=first\nDB_NAME=\"quoted db\"\nDB_USER=last\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "last assignment wins",
			args: []string{"DB_USER"},
			want: "last\n",
		},
		{
			name: "quotes are stripped",
			args: []string{"DB_NAME"},
			want: "quoted db\n",
		},
		{
			name: "missing key falls back to default",
			args: []string{"DB_HOST", "localhost"},
			want: "localhost\n",
		},
		{
			name: "missing key without default prints empty line",
			args: []string{"DB_HOST"},
			want: "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app, stdout, _ := newTestApp(t, testConfig(dir), testutil.NewCommandRecorder(), testutil.LookPathStub())
			if err := runEnvGet(context.Background(), app, &rootFlags{}, tt.args); err != nil {
				t.Fatalf("runEnvGet() error: %v", err)
			}

			if got := stdout.String(); got != tt.want {
				t.Errorf("runEnvGet() output = %q, want %q", got, tt.want)
			}
		})
	}
}
