//go:build !linux

package nat

import (
	"context"
	"errors"

	"nind/api"
)

type NftablesInstaller struct{}

func NewNftablesInstaller() *NftablesInstaller {
	return &NftablesInstaller{}
}

func (i *NftablesInstaller) Install(context.Context, *api.Container, Rule) error {
	return errors.New("nftables mode is only supported on linux")
}
