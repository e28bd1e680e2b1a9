package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/noah-isme/sma-tests-api/internal/models"
	"github.com/noah-isme/sma-tests-api/internal/service"
)

func exportContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("export", flag.ContinueOnError)
	for _, f := range exportCommand().Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestExportParamsDefaults(t *testing.T) {
	now := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	params, reportType, err := exportParams(exportContext(t, "--student", "stu-1", "--out", "card.pdf"), now)
	require.NoError(t, err)
	assert.Equal(t, models.ReportTypeReportCard, reportType)
	assert.Equal(t, models.ReportFormatPDF, params.Format)
	assert.Equal(t, 2025, params.AcademicYear)
	assert.Equal(t, 9, params.FromMonth)
	assert.Equal(t, 8, params.ToMonth)
}

func TestExportParamsRejects(t *testing.T) {
	now := time.Now()
	cases := map[string][]string{
		"missing student":     {"--out", "x"},
		"bad format":          {"--student", "s", "--format", "xlsx", "--out", "x"},
		"group needs subject": {"--type", "group_progress", "--group", "g", "--out", "x"},
		"unknown type":        {"--type", "roster", "--out", "x"},
		"bad month":           {"--student", "s", "--from", "13", "--out", "x"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := exportParams(exportContext(t, args...), now)
			assert.Error(t, err)
		})
	}
}

func TestIssueToken(t *testing.T) {
	auth := service.NewAuthService(nil, nil, service.AuthConfig{AccessTokenSecret: "secret", Issuer: "gradectl"})
	token, err := issueToken(auth, "admin-1", "Admin", "ADMIN", time.Hour)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = issueToken(auth, "admin-1", "", "ROOT", time.Hour)
	assert.Error(t, err)
}
