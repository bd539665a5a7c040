package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatusSynonyms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"in-progress", ReportStatusInProgress},
		{"inprogress", ReportStatusInProgress},
		{"complete", ReportStatusResolved},
		{"completed", ReportStatusResolved},
		{"canceled", ReportStatusClosed},
		{"cancelled", ReportStatusClosed},
		{" In-Progress ", ReportStatusInProgress},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeStatus(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStatusCanonicalIsIdentity(t *testing.T) {
	for _, s := range []string{
		ReportStatusSubmitted, ReportStatusInReview, ReportStatusAssigned,
		ReportStatusInProgress, ReportStatusResolved, ReportStatusClosed, ReportStatusPending,
	} {
		got, ok := NormalizeStatus(s)
		require.True(t, ok, s)
		assert.Equal(t, s, got)
	}
}

func TestNormalizeStatusRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "done", "rejected", "in progress"} {
		_, ok := NormalizeStatus(s)
		assert.False(t, ok, s)
	}
}

func TestAcceptedStatusesAllNormalizeToCanonicalSet(t *testing.T) {
	canonical := map[string]bool{
		ReportStatusSubmitted: true, ReportStatusInReview: true, ReportStatusAssigned: true,
		ReportStatusInProgress: true, ReportStatusResolved: true, ReportStatusClosed: true,
		ReportStatusPending: true,
	}

	accepted := AcceptedStatuses()
	require.Len(t, accepted, 13)
	for _, s := range accepted {
		got, ok := NormalizeStatus(s)
		require.True(t, ok, s)
		assert.True(t, canonical[got], "%s -> %s", s, got)
	}
}
