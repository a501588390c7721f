/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
)

// Service/keys for OS keyring.
const (
	keyringService = "ClipComposer"
	keyringToken   = "render_token"
)

// TokenStore abstracts the keyring, so tests can swap in a map.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// ErrNoToken is returned by Token when nothing is stored.
var ErrNoToken = errors.New("no render token stored")

// osKeyring implements TokenStore using github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var (
	storeMu    sync.RWMutex
	tokenStore TokenStore = osKeyring{}
)

// SetTokenStore replaces the token backend and returns the previous one.
func SetTokenStore(s TokenStore) TokenStore {
	storeMu.Lock()
	defer storeMu.Unlock()
	old := tokenStore
	tokenStore = s
	return old
}

func currentStore() TokenStore {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return tokenStore
}

// Token reads the render API token.
func Token() (string, error) {
	tok, err := currentStore().Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && tok == "") {
		return "", ErrNoToken
	}
	return tok, err
}

// SetToken stores the render API token.
func SetToken(token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	return currentStore().Set(keyringService, keyringToken, token)
}

// ClearToken removes the stored token. Clearing an absent token is not an error.
func ClearToken() error {
	err := currentStore().Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
