package processor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/weave/internal/engine/processor"
)

func TestImageProcessor_Write(t *testing.T) {
	srv := sharedServer(t, map[string]string{"/hero.png": "remote-png"})

	s := newSite(t)
	s.cfg.SharedDomain = srv.URL + "/"
	s.write("img/logo.png", "local-png")
	s.write("img/notes.txt", "not an image")

	p, pc := s.initTree()
	hero := processor.RemoteAssetURL(s.cfg, s.env.Hasher, srv.URL+"/hero.png")

	urls, err := processor.Run(t.Context(), pc, domain.NodeImage, p.images, []string{srv.URL + "/hero.png"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{hero, "/img/logo.png"}, urls)
	assert.Equal(t, "remote-png", s.output(hero))
	assert.Equal(t, "local-png", s.output("img/logo.png"))
	assert.NoFileExists(t, filepath.Join(s.cfg.OutDir, "img", "notes.txt"))

	urls, err = processor.Run(t.Context(), pc, domain.NodeImage, p.images, []string{srv.URL + "/hero.png"}, nil)
	require.NoError(t, err)
	assert.Empty(t, urls, "already written in this session")

	s.env.Dedup.Reset()
	require.NoError(t, os.Remove(filepath.Join(s.cfg.OutDir, "img", "logo.png")))
	urls, err = processor.Run(t.Context(), pc, domain.NodeImage, p.images, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"/img/logo.png"}, urls)
}

func TestImageProcessor_MissingRemote(t *testing.T) {
	srv := sharedServer(t, nil)

	s := newSite(t)
	p, pc := s.initTree()

	_, err := processor.Run(t.Context(), pc, domain.NodeImage, p.images, []string{srv.URL + "/nope.png"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpectedStatus)
}
