package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHost(t *testing.T, s string) Host {
	t.Helper()
	h, err := ParseHost(s)
	require.NoError(t, err)
	return h
}

func TestRegistryMarkDiscoveredImpliesKnownAndClearsTimedOut(t *testing.T) {
	r := newHostRegistry()
	a := mustHost(t, "a:27017")

	r.markTimedOut(a)
	r.markDiscovered(a)

	assert.True(t, r.isDiscovered(a))
	_, stillKnown := r.known[a]
	assert.True(t, stillKnown, "discovered ⊆ known")
	_, stillTimedOut := r.timedOut[a]
	assert.False(t, stillTimedOut, "discovered ∩ timed-out = ∅")
}

func TestRegistryMarkTimedOutClearsDiscovered(t *testing.T) {
	r := newHostRegistry()
	a := mustHost(t, "a:27017")

	r.markDiscovered(a)
	r.markTimedOut(a)

	assert.False(t, r.isDiscovered(a))
	_, timedOut := r.timedOut[a]
	assert.True(t, timedOut)
}

func TestRegistryCandidatesExcludesDiscoveredAndTimedOut(t *testing.T) {
	r := newHostRegistry()
	a, b, c := mustHost(t, "a:27017"), mustHost(t, "b:27017"), mustHost(t, "c:27017")
	r.insertKnown(a)
	r.insertKnown(b)
	r.insertKnown(c)
	r.markDiscovered(a)
	r.markTimedOut(b)

	assert.Equal(t, []Host{c}, r.candidates())
}

func TestRegistryCandidatesAreDeterministicallyOrdered(t *testing.T) {
	r := newHostRegistry()
	r.insertKnown(mustHost(t, "z:1"))
	r.insertKnown(mustHost(t, "a:1"))
	r.insertKnown(mustHost(t, "m:1"))

	first := r.candidates()
	second := r.candidates()
	assert.Equal(t, first, second)
	assert.Equal(t, []Host{mustHost(t, "a:1"), mustHost(t, "m:1"), mustHost(t, "z:1")}, first)
}

func TestRegistryResetTimeoutsEmptiesTimedOutSet(t *testing.T) {
	r := newHostRegistry()
	a := mustHost(t, "a:27017")
	r.markTimedOut(a)

	r.resetTimeouts()

	assert.Empty(t, r.timedOut)
}

func TestRegistryFoldHostsIsIdempotent(t *testing.T) {
	r := newHostRegistry()
	hosts := []string{"a:27017", "b:27017"}

	r.foldHosts(hosts, DefaultSLogger())
	first := r.candidates()
	r.foldHosts(hosts, DefaultSLogger())
	second := r.candidates()

	assert.Equal(t, first, second, "folding the same hosts twice leaves the registry unchanged")
}

func TestRegistryFoldHostsSwallowsMalformedEntries(t *testing.T) {
	r := newHostRegistry()

	r.foldHosts([]string{"a:27017", "not-a-host", "b:27017"}, DefaultSLogger())

	assert.Len(t, r.known, 2)
}
