package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	SetTelemetryReporter(nil)

	base := NewStd("boom")
	ee := New(base).
		Component("imageprovider").
		Category(CategoryImageProvider).
		Priority("bogus").
		Context("provider", "google").
		Build()

	assert.Equal(t, "imageprovider", ee.GetComponent())
	assert.Equal(t, CategoryImageProvider, ee.Category)
	assert.Equal(t, PriorityMedium, ee.Priority)
	assert.Equal(t, "google", ee.GetContext()["provider"])
	assert.ErrorIs(t, ee, base)
	assert.True(t, IsCategory(fmt.Errorf("wrapped: %w", ee), CategoryImageProvider))
}

func TestCategoryInheritedFromWrappedError(t *testing.T) {
	SetTelemetryReporter(nil)

	inner := New(NewStd("row missing")).Category(CategoryNotFound).Build()
	outer := New(fmt.Errorf("lookup: %w", inner)).Build()

	assert.Equal(t, CategoryNotFound, outer.Category)
	assert.True(t, IsNotFound(outer))
}

func TestReporterReceivesErrors(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := Newf("insert failed: %s", "locked").Component("datastore").Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.Equal(t, CategoryDatabase, ee.Category)
	assert.True(t, ee.IsReported())
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		absent  []string
	}{
		{
			name:    "query string",
			message: "GET https://www.googleapis.com/customsearch/v1?key=AIzaSecret&cx=123 failed",
			absent:  []string{"AIzaSecret", "cx=123"},
		},
		{
			name:    "api key assignment",
			message: "config error: api_key=secret123 is invalid",
			absent:  []string{"secret123"},
		},
		{
			name:    "bing subscription key",
			message: "header Subscription-Key: 0123456789abcdef0123456789abcdef rejected",
			absent:  []string{"0123456789abcdef0123456789abcdef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scrubbed := scrubMessageForPrivacy(tt.message)
			for _, s := range tt.absent {
				assert.NotContains(t, scrubbed, s)
			}
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(NewStd("x")).
		Component("imageprovider").
		Category(CategoryImageFetch).
		Context("operation", "google_search").
		Build()

	assert.Equal(t, "Imageprovider Image Fetch Error Google Search", generateErrorTitle(ee))
}
