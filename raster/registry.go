package raster

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available by name. It panics if a driver with the
// same name is already registered.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[d.Name()]; dup {
		panic("rasterchunk: Register called twice for driver " + d.Name())
	}
	drivers[d.Name()] = d
}

// Drivers returns the sorted names of registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func Lookup(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
	return d, nil
}

// ForPath deduces the driver from the file extension. If format is not
// empty it takes precedence.
func ForPath(format, path string) (Driver, error) {
	if format != "" {
		return Lookup(format)
	}

	driversMu.RLock()
	defer driversMu.RUnlock()
	lower := strings.ToLower(path)
	for _, d := range drivers {
		for _, ext := range d.Extensions() {
			if strings.HasSuffix(lower, ext) {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: cannot deduce format of %q", ErrUnknownFormat, path)
}

// Open opens path with the driver deduced from its extension.
func Open(path string) (Reader, error) {
	d, err := ForPath("", path)
	if err != nil {
		return nil, err
	}
	return d.Open(path)
}
