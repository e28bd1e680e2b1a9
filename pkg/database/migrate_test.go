package database

import (
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	defer func() { gooseRunFunc = goose.Run }()

	files := fstest.MapFS{"00001_init.sql": &fstest.MapFile{Data: []byte("-- +goose Up\n")}}

	var gotCommand, gotDir string
	var gotArgs []string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotCommand, gotDir, gotArgs = command, dir, args
		if command == "down-to" && len(args) == 0 {
			return errors.New("down-to requires a version")
		}
		return nil
	}

	tests := []struct {
		name    string
		command string
		args    []string
		wantErr bool
	}{
		{name: "up", command: "up"},
		{name: "up-to with version", command: "up-to", args: []string{"1"}},
		{name: "down-to without version", command: "down-to", wantErr: true},
		{name: "empty command", command: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommand = ""
			err := Migrate(nil, files, "", tt.command, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.command, gotCommand)
			assert.Equal(t, ".", gotDir)
			assert.Equal(t, tt.args, gotArgs)
		})
	}
}
