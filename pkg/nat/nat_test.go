package nat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nind/api"
	"nind/pkg/runtime"
)

type scriptedExec struct {
	results []error
	calls   [][]string
}

func (s *scriptedExec) ContainerExec(_ context.Context, id string, cmd []string) (string, error) {
	s.calls = append(s.calls, cmd)
	if len(s.results) == 0 {
		return "", nil
	}
	err := s.results[0]
	s.results = s.results[1:]
	return "", err
}

var router = &api.Container{ID: "r1", Name: "bns-router-1"}

func rule() Rule {
	return Rule{Subnet: "172.20.0.0/16", OutInterface: "eth1", ToSource: "172.17.0.3"}
}

func TestRuleValidate(t *testing.T) {
	r, err := Rule{Subnet: "172.20.0.9/16", OutInterface: "eth1", ToSource: "172.17.0.3"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "172.20.0.0/16", r.Subnet)

	bad := []Rule{
		{Subnet: "nope", OutInterface: "eth1", ToSource: "172.17.0.3"},
		{Subnet: "172.20.0.0/16", OutInterface: "", ToSource: "172.17.0.3"},
		{Subnet: "172.20.0.0/16", OutInterface: "eth1", ToSource: "172.17.0.3/16"},
		{Subnet: "172.20.0.0/16", OutInterface: "eth1", ToSource: ""},
	}
	for _, b := range bad {
		_, err := b.Validate()
		assert.Error(t, err, b.String())
	}
}

func TestIptablesInstallAppendsWhenMissing(t *testing.T) {
	se := &scriptedExec{results: []error{&runtime.ExecError{ExitCode: 1}, nil}}
	inst := NewIptablesInstaller(se)

	require.NoError(t, inst.Install(context.Background(), router, rule()))
	require.Len(t, se.calls, 2)
	assert.Equal(t, []string{
		"iptables-legacy", "-t", "nat", "-C", "POSTROUTING",
		"-s", "172.20.0.0/16", "-o", "eth1", "-j", "SNAT", "--to-source", "172.17.0.3",
	}, se.calls[0])
	assert.Equal(t, "-A", se.calls[1][3])
}

func TestIptablesInstallSkipsExisting(t *testing.T) {
	se := &scriptedExec{results: []error{nil}}
	require.NoError(t, NewIptablesInstaller(se).Install(context.Background(), router, rule()))
	assert.Len(t, se.calls, 1, "rule already present, no append")
}

func TestIptablesInstallFailures(t *testing.T) {
	t.Run("append fails", func(t *testing.T) {
		se := &scriptedExec{results: []error{
			&runtime.ExecError{ExitCode: 1},
			&runtime.ExecError{ExitCode: 4, Stderr: "permission denied"},
		}}
		err := NewIptablesInstaller(se).Install(context.Background(), router, rule())
		assert.ErrorIs(t, err, api.ErrRuleInstall)
	})

	t.Run("runtime failure on check", func(t *testing.T) {
		se := &scriptedExec{results: []error{errors.New("connection refused")}}
		err := NewIptablesInstaller(se).Install(context.Background(), router, rule())
		assert.ErrorIs(t, err, api.ErrRuleInstall)
		assert.Len(t, se.calls, 1)
	})

	for _, code := range []int{2, 4} {
		t.Run(fmt.Sprintf("check exits %d", code), func(t *testing.T) {
			se := &scriptedExec{results: []error{&runtime.ExecError{ExitCode: code}}}
			err := NewIptablesInstaller(se).Install(context.Background(), router, rule())
			assert.ErrorIs(t, err, api.ErrRuleInstall)
			assert.Len(t, se.calls, 1, "no append after a failed check")
		})
	}

	t.Run("invalid rule", func(t *testing.T) {
		se := &scriptedExec{}
		err := NewIptablesInstaller(se).Install(context.Background(), router, Rule{Subnet: "x"})
		assert.ErrorIs(t, err, api.ErrRuleInstall)
		assert.Empty(t, se.calls)
	})
}
