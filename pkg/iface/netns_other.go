//go:build !linux

package iface

import (
	"context"
	"errors"

	"nind/api"
)

var errNetnsUnsupported = errors.New("network namespace mode is only supported on linux")

type NetnsResolver struct{}

func NewNetnsResolver() *NetnsResolver {
	return &NetnsResolver{}
}

func (r *NetnsResolver) Resolve(context.Context, *api.Container, string) (string, error) {
	return "", errNetnsUnsupported
}
