package config

import (
	"sync"
)

var (
	singleton *Manager
	once      sync.Once
)

// GetInstance get singleton of config manager
func GetInstance() *Manager {
	once.Do(func() {
		singleton = &Manager{}
	})
	return singleton
}
