package nucleus

import "sync"

// DeviceInfo is an address and its associated (key, value) introspection
// pairs, e.g. {"device": "filesystem", "vendor": "Sangar Industries"}.
type DeviceInfo struct {
	Address string
	Pairs   map[string]string
}

// DeviceInfoList is a per-computer, owned, growable listing of DeviceInfo
// used to answer guest introspection calls (OpenComputers' computer.getDeviceInfo).
type DeviceInfoList struct {
	mu    sync.Mutex
	items []*DeviceInfo
}

// NewDeviceInfoList creates an empty list.
func NewDeviceInfoList() *DeviceInfoList {
	return &DeviceInfoList{}
}

// Set records key=value for address, creating the DeviceInfo entry if it
// does not already exist.
func (l *DeviceInfoList) Set(address, key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range l.items {
		if d.Address == address {
			d.Pairs[key] = value
			return
		}
	}

	l.items = append(l.items, &DeviceInfo{
		Address: address,
		Pairs:   map[string]string{key: value},
	})
}

// Get returns the DeviceInfo for address, if any.
func (l *DeviceInfoList) Get(address string) (*DeviceInfo, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range l.items {
		if d.Address == address {
			return d, true
		}
	}

	return nil, false
}

// Remove deletes the DeviceInfo for address, if present.
func (l *DeviceInfoList) Remove(address string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, d := range l.items {
		if d.Address == address {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// List returns every DeviceInfo entry.
func (l *DeviceInfoList) List() []*DeviceInfo {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*DeviceInfo, len(l.items))
	copy(out, l.items)

	return out
}
