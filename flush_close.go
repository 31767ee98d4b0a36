package ssr

import "fmt"

// Flush memaksa data kedua mirror tersimpan ke disk.
func (d *LogicalDevice) Flush() error {
	var firstErr error
	for _, m := range d.core.mirrors {
		if err := m.sync(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal sync mirror %s: %w", m.id, err)
		}
	}
	return firstErr
}

// Close berhenti menerima request, menunggu semua request yang sudah diterima
// selesai, lalu menutup kedua mirror. Close berikutnya tidak melakukan apa-apa.
func (d *LogicalDevice) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	if d.ownPool != nil {
		d.ownPool.Close()
	}

	var firstErr error
	for _, m := range d.core.mirrors {
		if err := m.dev.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("gagal menutup mirror %s: %w", m.id, err)
		}
	}
	return firstErr
}
