package pkg

import (
	"context"
	"fmt"
	"path/filepath"

	"nind/pkg/log"
)

const (
	RouterBuildDir = "bns-router"
	BuilderTarget  = "builder"
)

// BuildImages builds the router and node images from path, or only the
// node builder stage when builder is set.
func (m *Manager) BuildImages(ctx context.Context, path string, builder bool) error {
	if path == "" {
		path = m.cfg.BuildPath
	}
	log := log.WithComponent(m.log, "build")

	type job struct {
		dir, tag, target string
	}
	jobs := []job{
		{dir: filepath.Join(path, RouterBuildDir), tag: m.cfg.RouterImage},
		{dir: path, tag: m.cfg.NodeImage},
	}
	if builder {
		jobs = []job{{dir: path, tag: m.cfg.BuilderImage, target: BuilderTarget}}
	}

	for _, j := range jobs {
		log.Info().Str("path", j.dir).Str("tag", j.tag).Msg("Building image")
		if err := m.rt.ImageBuild(ctx, j.dir, j.tag, j.target); err != nil {
			return fmt.Errorf("build %s: %w", j.tag, err)
		}
	}
	return nil
}
