package jobs

// ExpireLocks runs one lock-expiry pass synchronously, bypassing the ticker.
func (ms *MemoryStorage) ExpireLocks() {
	ms.expireLocks()
}
