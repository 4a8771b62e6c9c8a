package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/config"
)

func TestRecompute_Empty(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	assert.Equal(t, "enquiry received", table.Recompute(nil))
	assert.Equal(t, "enquiry received", table.Recompute(map[string]bool{}))
}

func TestRecompute_Progression(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	completed := map[string]bool{"site-survey": true}
	assert.Equal(t, "site survey completed", table.Recompute(completed))

	completed["design"] = true
	assert.Equal(t, "design completed", table.Recompute(completed))

	completed["materials"] = true
	completed["budget"] = true
	completed["quote"] = true
	completed["quote_approval"] = true
	assert.Equal(t, "quote approved", table.Recompute(completed))
}

// A later stage without its prerequisites does not advance the status.
func TestRecompute_OutOfOrderCompletion(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	completed := map[string]bool{"quote": true}
	assert.Equal(t, "enquiry received", table.Recompute(completed))

	completed["site-survey"] = true
	assert.Equal(t, "site survey completed", table.Recompute(completed))
}

func TestRecompute_Reversion(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	completed := map[string]bool{
		"site-survey": true,
		"design":      true,
		"materials":   true,
	}
	assert.Equal(t, "materials specified", table.Recompute(completed))

	// Reopening the design task drops everything built on it.
	delete(completed, "design")
	assert.Equal(t, "site survey completed", table.Recompute(completed))
}

func TestRecompute_UnknownTypesIgnored(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	completed := map[string]bool{"logistics": true, "site-survey": true}
	assert.Equal(t, "site survey completed", table.Recompute(completed))
}

func TestStageFor(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	stage, ok := table.StageFor("budget")
	assert.True(t, ok)
	assert.Equal(t, "budget created", stage.Status)

	_, ok = table.StageFor("logistics")
	assert.False(t, ok)
}

func TestIndex_Ordering(t *testing.T) {
	table := config.DefaultEnquiryProjection()

	assert.Equal(t, -1, table.Index("enquiry received"))
	assert.Equal(t, -1, table.Index("nonsense"))
	assert.Less(t, table.Index("site survey completed"), table.Index("quote approved"))
}

func TestSatisfied(t *testing.T) {
	stage := config.ProjectionStage{
		TaskType:      "design",
		Status:        "design completed",
		Prerequisites: []string{"site-survey", "design"},
	}

	assert.False(t, stage.Satisfied(map[string]bool{"design": true}))
	assert.True(t, stage.Satisfied(map[string]bool{"site-survey": true, "design": true}))
}
