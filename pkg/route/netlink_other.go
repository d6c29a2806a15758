//go:build !linux

package route

import (
	"context"
	"errors"

	"nind/api"
)

type NetlinkInstaller struct{}

func NewNetlinkInstaller() *NetlinkInstaller {
	return &NetlinkInstaller{}
}

func (i *NetlinkInstaller) Install(context.Context, *api.Container, Route) error {
	return errors.New("netlink mode is only supported on linux")
}
