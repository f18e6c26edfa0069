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

package pocket

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/xelalexv/mcdino/internal/testing"
	"github.com/xelalexv/mcdino/pkg/adapter"
)

func newTestSession(t *testing.T, a *testutil.Adapter) *adapter.Session {
	t.Helper()
	s, err := adapter.Open(a, adapter.WithSettle(0))
	require.NoError(t, err)
	return s
}

func testPocket() *testutil.Pocket {
	info := []byte{
		0x03, 0x00, // dir index
		0x01, 0x02, 0x00, 0x00, // com flags
		0x78, 0x56, 0x34, 0x12, // serial
		0x19, 0x99, 0x12, 0x31, // 1999-12-31
		0x06, 0x23, 0x59, 0x58, // Friday, 23:59:58
	}
	bios := make([]byte, BIOSLength)
	for ix := range bios {
		bios[ix] = byte(ix * 13)
	}
	return &testutil.Pocket{Info: info, BIOS: bios}
}

func TestReadInfo(t *testing.T) {

	a := testutil.NewAdapter(1)
	a.Pocket = testPocket()
	s := newTestSession(t, a)

	info, err := ReadInfo(s)
	require.NoError(t, err)

	assert.Equal(t, uint16(3), info.DirIndex)
	assert.Equal(t, uint32(0x0201), info.ComFlags)
	assert.Equal(t, uint32(0x12345678), info.Serial)
	assert.Equal(t, Clock{Year: 1999, Month: time.December, Day: 31,
		Weekday: time.Friday, Hour: 23, Minute: 59, Second: 58}, info.Clock)
	assert.Contains(t, info.String(), "12345678")
	assert.Contains(t, info.String(), "1999-12-31 23:59:58 (Friday)")
}

func TestPeripheralAbsent(t *testing.T) {

	a := testutil.NewAdapter(1)
	s := newTestSession(t, a)

	var pae *PeripheralAbsentError

	_, err := ReadInfo(s)
	require.True(t, errors.As(err, &pae))
	assert.Equal(t, "info", pae.Op)
	assert.False(t, adapter.IsFatal(err))

	var out bytes.Buffer
	_, err = ReadBIOS(context.Background(), s, &out, nil)
	require.True(t, errors.As(err, &pae))
	assert.Equal(t, 0, out.Len())

	err = SetClock(s, time.Now())
	require.True(t, errors.As(err, &pae))

	// absence is not a communication failure
	assert.Equal(t, adapter.StateReady, s.State())
}

func TestPeripheralTransportError(t *testing.T) {

	a := testutil.NewAdapter(1)
	s := newTestSession(t, a)
	a.Silent = true

	_, err := ReadInfo(s)
	var pae *PeripheralAbsentError
	assert.False(t, errors.As(err, &pae))
	assert.True(t, adapter.IsFatal(err))
}

func TestReadBIOSDesync(t *testing.T) {

	a := testutil.NewAdapter(1)
	a.Pocket = testPocket()
	a.Pocket.BIOS = a.Pocket.BIOS[:2*BIOSSize] // only two blocks available
	s := newTestSession(t, a)

	var out bytes.Buffer
	bios, err := ReadBIOS(context.Background(), s, &out, nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDesync))
	assert.True(t, adapter.IsFatal(err))
	var pae *PeripheralAbsentError
	assert.False(t, errors.As(err, &pae))
	assert.Contains(t, err.Error(), "at block 2")

	assert.Equal(t, 2*BIOSSize, bios.Length)
	assert.Equal(t, a.Pocket.BIOS, out.Bytes())
	assert.Equal(t, adapter.StateClosed, s.State())
	assert.True(t, a.Closed)
}

func TestReadBIOS(t *testing.T) {

	a := testutil.NewAdapter(1)
	a.Pocket = testPocket()
	s := newTestSession(t, a)

	var sum uint32
	for _, b := range a.Pocket.BIOS {
		sum += uint32(b)
	}

	var blocks []int
	var out bytes.Buffer
	bios, err := ReadBIOS(context.Background(), s, &out,
		func(block, total int) {
			assert.Equal(t, BIOSBlocks, total)
			blocks = append(blocks, block)
		})

	require.NoError(t, err)
	assert.Equal(t, a.Pocket.BIOS, out.Bytes())
	assert.Equal(t, BIOSLength, bios.Length)
	assert.Equal(t, sum, bios.Checksum)
	assert.Len(t, blocks, BIOSBlocks)

	label, known := bios.Classify(References{sum: "test BIOS"})
	assert.True(t, known)
	assert.Equal(t, "test BIOS", label)

	label, known = bios.Classify(References{})
	assert.False(t, known)
	assert.Equal(t, "unknown", label)
}

func TestSetClock(t *testing.T) {

	a := testutil.NewAdapter(1)
	a.Pocket = testPocket()
	s := newTestSession(t, a)

	when := time.Date(2021, time.March, 7, 8, 9, 10, 0, time.UTC)
	require.NoError(t, SetClock(s, when))

	assert.Equal(t,
		[]byte{0x20, 0x21, 0x03, 0x07, 0x01, 0x08, 0x09, 0x10}, a.Pocket.Clock)
	assert.Equal(t, when, decodeClock(a.Pocket.Clock).Time(time.UTC))
	assert.Equal(t, time.Sunday, decodeClock(a.Pocket.Clock).Weekday)
}

func TestBCD(t *testing.T) {
	for v := 0; v < 100; v++ {
		require.Equal(t, v, fromBCD(toBCD(v)))
	}
	assert.Equal(t, byte(0x59), toBCD(59))
	assert.Equal(t, 42, fromBCD(0x42))
}

func TestParseReferences(t *testing.T) {

	refs, err := ParseReferences([]string{"v1.00 JP=0x00123456", "v1.1=42"})
	require.NoError(t, err)
	assert.Equal(t, References{0x123456: "v1.00 JP", 42: "v1.1"}, refs)
	assert.Equal(t, "v1.00 JP=0x00123456\nv1.1=0x0000002A", refs.String())

	_, err = ParseReferences([]string{"nochecksum"})
	assert.Error(t, err)
	_, err = ParseReferences([]string{"x=0xzz"})
	assert.Error(t, err)
}
