/*
   McDino - PlayStation memory card adapter driver
   Copyright (c) 2021, Alexander Vollschwitz

   This file is part of McDino.

   McDino is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   McDino is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with McDino. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xelalexv/mcdino/pkg/card"
	"github.com/xelalexv/mcdino/pkg/pocket"
)

func TestSettings(t *testing.T) {

	t.Setenv("MCDINO_TEST_DEVICE", "/dev/ttyUSB7")

	var device string
	var baud int
	var pace time.Duration

	var cmd *Command
	cmd = NewCommand("test", "", "", "", "", func() error {
		cmd.ParseSettings()
		return nil
	})

	cmd.AddSetting(&device, "test-device", "", "MCDINO_TEST_DEVICE", nil,
		"device", true)
	cmd.AddSetting(&baud, "test-baud", "", "", 38400, "baud", false)
	cmd.AddSetting(&pace, "test-pace", "", "", time.Duration(0), "pace", false)

	require.NoError(t, cmd.Execute([]string{"--test-pace", "150ms", "extra"}))

	assert.Equal(t, "/dev/ttyUSB7", device)
	assert.Equal(t, 38400, baud)
	assert.Equal(t, card.SlowPeripheralPace, pace)
	assert.Equal(t, []string{"extra"}, cmd.Args)
}

func TestRequiredSettingMissing(t *testing.T) {

	UnderTest = true
	defer func() { UnderTest = false }()

	var device string
	var cmd *Command
	cmd = NewCommand("test", "", "", "", "", func() error {
		cmd.ParseSettings()
		return nil
	})
	cmd.AddSetting(&device, "test-required", "", "MCDINO_TEST_REQUIRED", nil,
		"device", true)

	assert.PanicsWithValue(t, "you need to specify the --test-required "+
		"command line flag or the MCDINO_TEST_REQUIRED environment variable",
		func() { cmd.Execute([]string{"--test-required", ""}) })
}

func TestReadConfig(t *testing.T) {

	file := filepath.Join(t.TempDir(), "mcdino.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
pocket:
  bios:
    - "v1.00 JP=0x000ABCDE"
    - "v1.1=0x12"
`), 0644))

	require.NoError(t, ReadConfig(file))

	r := &Runner{}
	refs, err := r.references()
	require.NoError(t, err)
	assert.Equal(t, pocket.References{0xabcde: "v1.00 JP", 0x12: "v1.1"}, refs)

	assert.NoError(t, ReadConfig(""))
	assert.Error(t, ReadConfig(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestOpenImage(t *testing.T) {

	dir := t.TempDir()
	r := &Runner{Capacity: 4}

	good := filepath.Join(dir, "good.mcd")
	require.NoError(t, os.WriteFile(good,
		make([]byte, card.ImageSize(r.Capacity)), 0644))
	f, err := r.openImage(good)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	short := filepath.Join(dir, "short.mcd")
	require.NoError(t, os.WriteFile(short,
		make([]byte, card.ImageSize(r.Capacity)-1), 0644))
	_, err = r.openImage(short)
	var ise *card.ImageSizeError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, card.ImageSize(r.Capacity)-1, ise.Got)

	_, err = r.openImage(filepath.Join(dir, "missing.mcd"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestBIOSSummary(t *testing.T) {

	bios := &pocket.BIOS{Length: pocket.BIOSLength, Checksum: 0x1234}

	sum := biosSummary(bios, pocket.References{})
	assert.Contains(t, sum, "version unknown")
	assert.Contains(t, sum, "no BIOS references configured")
	assert.Contains(t, sum, biosReferencesKey)

	sum = biosSummary(bios, pocket.References{0x1234: "v1.00 JP"})
	assert.Equal(t, "BIOS: 16384 bytes, checksum 0x00001234, version v1.00 JP", sum)

	sum = biosSummary(bios, pocket.References{0x4321: "v1.1"})
	assert.Contains(t, sum, "version unknown")
	assert.NotContains(t, sum, "no BIOS references")
}

func TestProgressPrinter(t *testing.T) {

	var out bytes.Buffer
	p := progressPrinter(&out, "read")

	p(card.Progress{Op: "read", Index: 0, Total: 2})
	p(card.Progress{Op: "read", Index: 1, Total: 2, Err: errors.New("bad")})

	assert.Equal(t,
		"\r1 / 2 frames read\nframe 1: bad\n\r2 / 2 frames read\n", out.String())
}

func TestFinish(t *testing.T) {

	var out bytes.Buffer
	r := &Runner{out: &out}

	assert.NoError(t, r.finish(&card.Result{Op: "read", Total: 2, Good: 2}, nil))
	assert.Contains(t, out.String(), "read: all 2 frames good")

	res := &card.Result{Op: "verify", Total: 2, Good: 1,
		Failures: []card.FrameFailure{{Index: 1, Err: errors.New("mismatch")}}}
	err := r.finish(res, nil)
	assert.True(t, errors.Is(err, ErrFramesFailed))
	assert.Contains(t, out.String(), "verify: 1 of 2 frames good, 1 failed")

	fatal := errors.New("port gone")
	assert.Equal(t, fatal, r.finish(res, fatal))
	assert.Equal(t, fatal, r.finish(nil, fatal))
}
