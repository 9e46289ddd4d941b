package credentials

import (
	"errors"

	"github.com/zalando/go-keyring"
)

const serviceName = "lumo"

var ErrNotFound = errors.New("credentials: not found")

// App secrets live in the OS keyring so they survive reinstalls of the
// data directory without ever touching the config file on disk.

func StoreAppSecret(key string, value string) error {
	return keyring.Set(serviceName, "app:"+key, value)
}

func LoadAppSecret(key string) (string, error) {
	val, err := keyring.Get(serviceName, "app:"+key)
	if err != nil {
		return "", ErrNotFound
	}
	return val, nil
}

func DeleteAppSecret(key string) {
	_ = keyring.Delete(serviceName, "app:"+key)
}
