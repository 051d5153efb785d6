package geoip

import (
	"errors"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	codes map[string]string
	calls int
	err   error
}

func (f *fakeReader) Country(ip net.IP) (*geoip2.Country, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	rec := &geoip2.Country{}
	rec.Country.IsoCode = f.codes[ip.String()]
	return rec, nil
}

func TestCountryCode(t *testing.T) {
	reader := &fakeReader{codes: map[string]string{"103.10.20.30": "id", "8.8.8.8": "US"}}
	r := newResolver(reader)

	code, err := r.CountryCode(" 103.10.20.30 ")
	require.NoError(t, err)
	assert.Equal(t, "ID", code)

	code, err = r.CountryCode("103.10.20.30")
	require.NoError(t, err)
	assert.Equal(t, "ID", code)
	assert.Equal(t, 1, reader.calls, "second lookup should hit the cache")

	code, err = r.CountryCode("1.1.1.1")
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestCountryCodeSkipsLocalAddresses(t *testing.T) {
	reader := &fakeReader{}
	r := newResolver(reader)
	for _, ip := range []string{"127.0.0.1", "10.0.0.8", "192.168.1.20", "::1", "0.0.0.0"} {
		code, err := r.CountryCode(ip)
		require.NoError(t, err, ip)
		assert.Empty(t, code, ip)
	}
	assert.Zero(t, reader.calls)
}

func TestCountryCodeErrors(t *testing.T) {
	var nilResolver *Resolver
	_, err := nilResolver.CountryCode("8.8.8.8")
	assert.ErrorIs(t, err, ErrUnavailable)

	r := newResolver(&fakeReader{err: errors.New("corrupt db")})
	_, err = r.CountryCode("not-an-ip")
	assert.ErrorContains(t, err, "invalid ip")
	_, err = r.CountryCode("8.8.8.8")
	assert.ErrorContains(t, err, "corrupt db")
}

func TestOpenEmptyPathDisables(t *testing.T) {
	r, err := Open("  ")
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.NoError(t, r.Close())
}
