package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates() []AuthorityCandidate {
	return []AuthorityCandidate{
		{Label: "Jefferson, Thomas, 1775-1850", ClusterID: "111"},
		{Label: "Jefferson, Thomas, 1743-1826", ClusterID: "222", LocalCode: "n79089957"},
		{Label: "Jefferson, Thomas", ClusterID: "333"},
	}
}

func TestSelectAuthorityCandidate_Empty(t *testing.T) {
	assert.Nil(t, SelectAuthorityCandidate(nil, "1787"))
}

func TestSelectAuthorityCandidate_NoHintPicksFirst(t *testing.T) {
	got := SelectAuthorityCandidate(candidates(), "")
	require.NotNil(t, got)
	assert.Equal(t, "111", got.ClusterID)
}

func TestSelectAuthorityCandidate_ExactYear(t *testing.T) {
	got := SelectAuthorityCandidate(candidates(), "1826")
	require.NotNil(t, got)
	assert.Equal(t, "222", got.ClusterID)
}

func TestSelectAuthorityCandidate_ClosestYear(t *testing.T) {
	// 1787 is 44 from 1743 and 12 from 1775
	got := SelectAuthorityCandidate(candidates(), "1787")
	require.NotNil(t, got)
	assert.Equal(t, "111", got.ClusterID)

	// 1830 is 4 from 1826 and 20 from 1850
	got = SelectAuthorityCandidate(candidates(), "1830")
	require.NotNil(t, got)
	assert.Equal(t, "222", got.ClusterID)
}

func TestSelectAuthorityCandidate_NoYearsPicksFirst(t *testing.T) {
	cands := []AuthorityCandidate{
		{Label: "Monticello", ClusterID: "a"},
		{Label: "Monticello (Va.)", ClusterID: "b"},
	}
	got := SelectAuthorityCandidate(cands, "1800")
	require.NotNil(t, got)
	assert.Equal(t, "a", got.ClusterID)
}

func TestSelectAuthorityCandidate_NonNumericHint(t *testing.T) {
	got := SelectAuthorityCandidate(candidates(), "circa")
	require.NotNil(t, got)
	assert.Equal(t, "111", got.ClusterID)
}

func TestYearOf(t *testing.T) {
	date := func(s string) *string { return &s }

	assert.Equal(t, "", YearOf(nil))
	assert.Equal(t, "1787", YearOf(date("1787-05-10")))
	assert.Equal(t, "1801", YearOf(date("1801")))
	assert.Equal(t, "", YearOf(date("undated")))
}
