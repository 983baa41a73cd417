//go:build darwin

package secrets

import (
	"errors"

	"github.com/keybase/go-keychain"
)

// NewPlatformStore returns the macOS Keychain-backed store.
func NewPlatformStore() Store {
	return &KeychainStore{}
}

// KeychainStore implements Store using the macOS Keychain.
type KeychainStore struct{}

// Get retrieves an item from the macOS Keychain.
func (k *KeychainStore) Get(service, account string) ([]byte, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(service)
	query.SetAccount(account)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		if errors.Is(err, keychain.ErrorItemNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0].Data, nil
}

// Set stores an item in the macOS Keychain, updating it if it already exists.
func (k *KeychainStore) Set(service, account string, data []byte) error {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(service)
	item.SetAccount(account)
	item.SetLabel(service + " - " + account)
	item.SetData(data)
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	err := keychain.AddItem(item)
	if errors.Is(err, keychain.ErrorDuplicateItem) {
		return k.updateItem(service, account, data)
	}
	return err
}

func (k *KeychainStore) updateItem(service, account string, data []byte) error {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(service)
	query.SetAccount(account)

	update := keychain.NewItem()
	update.SetData(data)

	return keychain.UpdateItem(query, update)
}

// Delete removes an item from the macOS Keychain. A missing item is treated
// as success.
func (k *KeychainStore) Delete(service, account string) error {
	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(service)
	item.SetAccount(account)

	err := keychain.DeleteItem(item)
	if errors.Is(err, keychain.ErrorItemNotFound) {
		return nil
	}
	return err
}

// IsSupported returns true for KeychainStore on macOS.
func (k *KeychainStore) IsSupported() bool {
	return true
}
