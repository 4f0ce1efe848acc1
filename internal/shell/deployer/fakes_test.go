package deployer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/artpar/beanstalker/internal/core/domain"
	"github.com/artpar/beanstalker/internal/shell/platform"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// =============================================================================
// Fake Hosting
// =============================================================================

// fakeHosting is an in-memory hosting platform. Every call is appended to
// calls as "Method arg" so tests can assert on ordering.
type fakeHosting struct {
	mu sync.Mutex

	versions map[string][]domain.ApplicationVersion
	envs     []domain.Environment
	clock    time.Time

	calls         []string
	deleted       []string
	deleteBundles []bool

	listErr     error
	describeErr error
	createErr   error
	updateErr   error
	versionErr  error
	deleteErrs  map[string]error

	inFlight    int
	maxInFlight int
	deleteDelay time.Duration
}

func newFakeHosting() *fakeHosting {
	return &fakeHosting{
		versions:   map[string][]domain.ApplicationVersion{},
		clock:      baseTime,
		deleteErrs: map[string]error{},
	}
}

// seedVersions registers n versions v00..v(n-1), one hour apart, oldest first.
func (f *fakeHosting) seedVersions(app string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		ts := baseTime.Add(time.Duration(i) * time.Hour)
		f.versions[app] = append(f.versions[app], domain.ApplicationVersion{
			ApplicationName: app,
			VersionLabel:    fmt.Sprintf("v%02d", i),
			CreatedAt:       ts,
			UpdatedAt:       ts,
		})
	}
	f.clock = baseTime.Add(time.Duration(n) * time.Hour)
}

func (f *fakeHosting) addEnvironment(env domain.Environment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.envs = append(f.envs, env)
}

func (f *fakeHosting) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeHosting) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeHosting) labels(app string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.Labels(f.versions[app])
}

func (f *fakeHosting) deletedLabels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.deleted...)
	sort.Strings(out)
	return out
}

func (f *fakeHosting) ListVersions(ctx context.Context, application string) ([]domain.ApplicationVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListVersions " + application)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.ApplicationVersion(nil), f.versions[application]...), nil
}

func (f *fakeHosting) DeleteVersion(ctx context.Context, application, label string, deleteSourceBundle bool) error {
	f.mu.Lock()
	f.record("DeleteVersion " + label)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.deleteDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if err := f.deleteErrs[label]; err != nil {
		return err
	}
	kept := f.versions[application][:0]
	for _, v := range f.versions[application] {
		if v.VersionLabel != label {
			kept = append(kept, v)
		}
	}
	f.versions[application] = kept
	f.deleted = append(f.deleted, label)
	f.deleteBundles = append(f.deleteBundles, deleteSourceBundle)
	return nil
}

func (f *fakeHosting) DescribeEnvironments(ctx context.Context, filter platform.EnvironmentFilter) ([]domain.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DescribeEnvironments " + filter.Application)
	if f.describeErr != nil {
		return nil, f.describeErr
	}

	var out []domain.Environment
	for _, env := range f.envs {
		if filter.Application != "" && env.ApplicationName != filter.Application {
			continue
		}
		if len(filter.Names) > 0 && !contains(filter.Names, env.Name) {
			continue
		}
		if !env.IsLive() {
			continue
		}
		out = append(out, env)
	}
	return out, nil
}

func (f *fakeHosting) CreateEnvironment(ctx context.Context, req platform.CreateEnvironmentRequest) (*domain.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateEnvironment " + req.Environment)
	if f.createErr != nil {
		return nil, f.createErr
	}
	env := domain.Environment{
		ID:              "e-" + req.Environment,
		Name:            req.Environment,
		ApplicationName: req.Application,
		VersionLabel:    req.VersionLabel,
		TemplateName:    req.TemplateName,
		Status:          domain.EnvironmentLaunching,
	}
	f.envs = append(f.envs, env)
	return &env, nil
}

func (f *fakeHosting) UpdateEnvironment(ctx context.Context, req platform.UpdateEnvironmentRequest) (*domain.Environment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateEnvironment " + req.Environment)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for i := range f.envs {
		if f.envs[i].Name == req.Environment && f.envs[i].IsLive() {
			f.envs[i].VersionLabel = req.VersionLabel
			f.envs[i].Status = domain.EnvironmentUpdating
			env := f.envs[i]
			return &env, nil
		}
	}
	return nil, &domain.ServiceRequestError{Op: "UpdateEnvironment", Target: req.Environment, Code: "InvalidParameterValue"}
}

func (f *fakeHosting) CreateApplicationVersion(ctx context.Context, req platform.CreateVersionRequest) (*domain.ApplicationVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateApplicationVersion " + req.VersionLabel)
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	for _, v := range f.versions[req.Application] {
		if v.VersionLabel == req.VersionLabel {
			return nil, &domain.ServiceRequestError{Op: "CreateApplicationVersion", Target: req.VersionLabel, Code: "InvalidParameterValue"}
		}
	}
	if _, ok := f.versions[req.Application]; !ok && !req.AutoCreateApplication {
		return nil, &domain.ServiceRequestError{Op: "CreateApplicationVersion", Target: req.Application, Code: "InvalidParameterValue"}
	}
	v := domain.ApplicationVersion{
		ApplicationName: req.Application,
		VersionLabel:    req.VersionLabel,
		Description:     req.Description,
		SourceBundle:    req.SourceBundle,
		CreatedAt:       f.clock,
		UpdatedAt:       f.clock,
	}
	f.clock = f.clock.Add(time.Hour)
	f.versions[req.Application] = append(f.versions[req.Application], v)
	return &v, nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// Fake Storage
// =============================================================================

type fakeStorage struct {
	mu sync.Mutex

	bucket    string
	objects   map[string][]byte
	bucketErr error
	putErr    error
	calls     []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		bucket:  "elasticbeanstalk-eu-west-1-123456789012",
		objects: map[string][]byte{},
	}
}

func (s *fakeStorage) CreateOrGetBucket(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "CreateOrGetBucket")
	if s.bucketErr != nil {
		return "", s.bucketErr
	}
	return s.bucket, nil
}

func (s *fakeStorage) PutObject(ctx context.Context, bucket, key string, body io.ReadSeeker, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "PutObject "+key)
	if s.putErr != nil {
		return s.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	if int64(buf.Len()) != size {
		return fmt.Errorf("size mismatch: declared %d, read %d", size, buf.Len())
	}
	s.objects[bucket+"/"+key] = buf.Bytes()
	return nil
}

func (s *fakeStorage) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// =============================================================================
// Helpers
// =============================================================================

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fixedNow() time.Time {
	return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
}
