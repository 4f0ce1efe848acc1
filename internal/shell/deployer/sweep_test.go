package deployer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/shell/metrics"
)

func newTestSweeper(h *fakeHosting, cfg SweepConfig, r *metrics.Recorder) *Sweeper {
	return NewSweeper(h, cfg, r, nil)
}

// =============================================================================
// Retention Count
// =============================================================================

func TestSweep_DeletesOldestBeyondKeep(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 25)

	result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, []string{"v00", "v01", "v02", "v03", "v04"}, h.deletedLabels())
	assert.ElementsMatch(t, []string{"v00", "v01", "v02", "v03", "v04"}, result.Removed)
	assert.Equal(t, 25, result.Total)
	assert.Equal(t, 5, result.Candidates)
	assert.Empty(t, result.Protected)
	assert.Empty(t, result.Failures)
	assert.NoError(t, result.Err())
	assert.Len(t, h.labels("shop"), 20)
}

func TestSweep_DeletesSourceBundles(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 21)

	_, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, h.deleteBundles)
}

func TestSweep_NothingToDelete(t *testing.T) {
	for _, n := range []int{0, 15, 20} {
		h := newFakeHosting()
		h.seedVersions("shop", n)

		result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
		require.NoError(t, err)

		assert.Empty(t, h.deletedLabels(), "n=%d", n)
		assert.Empty(t, result.Removed)
		assert.Equal(t, 0, result.Candidates)
		assert.NotContains(t, h.callLog(), "DescribeEnvironments shop", "no candidates means no environment scan")
	}
}

func TestSweep_Idempotent(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 23)
	s := newTestSweeper(h, DefaultSweepConfig(), nil)

	first, err := s.Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Len(t, first.Removed, 3)

	second, err := s.Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Empty(t, second.Removed)
	assert.Len(t, h.labels("shop"), 20)
}

func TestSweep_SortsByUpdateTimeNotListingOrder(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 22)
	// Newest first, the way the platform usually lists them.
	vs := h.versions["shop"]
	for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
		vs[i], vs[j] = vs[j], vs[i]
	}

	result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"v00", "v01"}, result.Removed)
}

func TestSweep_KeepZeroDeletesAllUndeployed(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 4)
	h.addEnvironment(domain.Environment{Name: "shop-prod", ApplicationName: "shop", VersionLabel: "v03", Status: domain.EnvironmentReady})

	result, err := newTestSweeper(h, SweepConfig{Keep: 0}, nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"v00", "v01", "v02"}, h.deletedLabels())
	assert.Equal(t, []string{"v03"}, result.Protected)
}

// =============================================================================
// Deployed Versions
// =============================================================================

func TestSweep_NeverDeletesDeployedVersion(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 25)
	h.addEnvironment(domain.Environment{Name: "shop-staging", ApplicationName: "shop", VersionLabel: "v02", Status: domain.EnvironmentReady})
	h.addEnvironment(domain.Environment{Name: "shop-prod", ApplicationName: "shop", VersionLabel: "v24", Status: domain.EnvironmentReady})

	result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, []string{"v00", "v01", "v03", "v04"}, h.deletedLabels())
	assert.Equal(t, []string{"v02"}, result.Protected)
	assert.Contains(t, h.labels("shop"), "v02")
	// A protected candidate does not free a slot for another deletion.
	assert.Len(t, h.labels("shop"), 21)
}

func TestSweep_IgnoresOtherApplicationsEnvironments(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 21)
	h.addEnvironment(domain.Environment{Name: "blog-prod", ApplicationName: "blog", VersionLabel: "v00", Status: domain.EnvironmentReady})

	result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"v00"}, result.Removed)
}

func TestSweep_TerminatedEnvironmentDoesNotProtect(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 21)
	h.addEnvironment(domain.Environment{Name: "shop-old", ApplicationName: "shop", VersionLabel: "v00", Status: domain.EnvironmentTerminated})

	result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"v00"}, result.Removed)
}

// =============================================================================
// Failures
// =============================================================================

func TestSweep_ListFailureAborts(t *testing.T) {
	h := newFakeHosting()
	h.listErr = &domain.ServiceRequestError{Op: "DescribeApplicationVersions", Target: "shop", Code: "AccessDenied"}

	result, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrServiceRequest)
}

func TestSweep_EnvironmentScanFailureAborts(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 22)
	h.describeErr = errors.New("boom")

	_, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.Error(t, err)
	assert.Empty(t, h.deletedLabels(), "no deletion without knowing what is deployed")
}

func TestSweep_ContinuesAfterDeleteFailure(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 24)
	h.deleteErrs["v01"] = &domain.ServiceRequestError{Op: "DeleteApplicationVersion", Target: "v01", Code: "Throttling"}

	r := metrics.NewRecorder()
	result, err := newTestSweeper(h, DefaultSweepConfig(), r).Sweep(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, []string{"v00", "v02", "v03"}, h.deletedLabels())
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "v01", result.Failures[0].Label)
	assert.Contains(t, result.Failures[0].Error, "Throttling")

	joined := result.Err()
	require.Error(t, joined)
	assert.ErrorIs(t, joined, domain.ErrServiceRequest)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.VersionCount(metrics.OutcomeRemoved)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.VersionCount(metrics.OutcomeFailed)))
}

func TestSweepResult_ErrNil(t *testing.T) {
	var r *SweepResult
	assert.NoError(t, r.Err())
	assert.NoError(t, (&SweepResult{}).Err())
}

// =============================================================================
// Concurrency
// =============================================================================

func TestSweep_ParallelDeletionRespectsLimit(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 32)
	h.deleteDelay = 10 * time.Millisecond

	cfg := SweepConfig{Keep: 20, Concurrency: 4}
	result, err := newTestSweeper(h, cfg, nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)

	assert.Len(t, result.Removed, 12)
	assert.Len(t, h.labels("shop"), 20)
	assert.LessOrEqual(t, h.maxInFlight, 4)
	assert.GreaterOrEqual(t, h.maxInFlight, 1)
}

func TestSweep_SequentialByDefault(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 25)
	h.deleteDelay = time.Millisecond

	_, err := newTestSweeper(h, DefaultSweepConfig(), nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, 1, h.maxInFlight)
}

func TestSweep_RateLimited(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 23)

	cfg := SweepConfig{Keep: 20, Concurrency: 2, RequestsPerSecond: 1000}
	result, err := newTestSweeper(h, cfg, nil).Sweep(context.Background(), "shop")
	require.NoError(t, err)
	assert.Len(t, result.Removed, 3)
}

func TestSweep_CancelledContextFailsRateLimitedDeletes(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 22)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := SweepConfig{Keep: 20, Concurrency: 1, RequestsPerSecond: 1}
	result, err := newTestSweeper(h, cfg, nil).Sweep(ctx, "shop")
	require.NoError(t, err)
	assert.Len(t, result.Failures, 2)
	assert.Empty(t, h.deletedLabels())
}

// =============================================================================
// Plan
// =============================================================================

func TestSweeper_PlanDoesNotDelete(t *testing.T) {
	h := newFakeHosting()
	h.seedVersions("shop", 23)
	h.addEnvironment(domain.Environment{Name: "shop-prod", ApplicationName: "shop", VersionLabel: "v01", Status: domain.EnvironmentReady})

	decision, err := newTestSweeper(h, DefaultSweepConfig(), nil).Plan(context.Background(), "shop")
	require.NoError(t, err)

	assert.Equal(t, []string{"v00", "v02"}, domain.Labels(decision.Delete))
	assert.Equal(t, []string{"v01"}, domain.Labels(decision.Protected))
	assert.Len(t, decision.Keep, 20)
	assert.Empty(t, h.deletedLabels())
}

func TestNewSweeper_NormalizesConfig(t *testing.T) {
	s := NewSweeper(newFakeHosting(), SweepConfig{Keep: -3, Concurrency: 0}, nil, nil)
	assert.Equal(t, 0, s.config.Keep)
	assert.Equal(t, 1, s.config.Concurrency)
	assert.Nil(t, s.limiter)
}
