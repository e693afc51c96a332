package secrets

import (
	"encoding/hex"
	"os"
	"testing"
)

func TestNewLocalSecretStore(t *testing.T) {
	masterKey, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}

	filename := t.TempDir() + "/secrets.json"
	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		t.Fatalf("Failed to create LocalSecretStore: %v", err)
	}

	if store.filename != filename {
		t.Errorf("Expected filename %s, got %s", filename, store.filename)
	}
	if hex.EncodeToString(store.masterKey) != masterKey {
		t.Errorf("Expected master key %s, got %s", masterKey, hex.EncodeToString(store.masterKey))
	}
}

func TestGenerateMasterKey(t *testing.T) {
	key, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}
	if len(key) != 64 { // 32 bytes in hex representation
		t.Errorf("Expected key length 64, got %d", len(key))
	}
}

func TestStoreAndGetSecretByID(t *testing.T) {
	masterKey, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}

	filename := t.TempDir() + "/secrets.json"
	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		t.Fatalf("Failed to create LocalSecretStore: %v", err)
	}

	secretID := "x3000m0"
	secretValue := `{"username":"admn","password":"initial"}`

	if err = store.StoreSecretByID(secretID, secretValue); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	retrieved, err := store.GetSecretByID(secretID)
	if err != nil {
		t.Fatalf("Failed to get secret: %v", err)
	}
	if retrieved != secretValue {
		t.Errorf("Expected secret %s, got %s", secretValue, retrieved)
	}

	// the stored form on disk must not be the plaintext
	encrypted, err := store.ListSecrets()
	if err != nil {
		t.Fatalf("Failed to list secrets: %v", err)
	}
	if encrypted[secretID] == secretValue {
		t.Error("Secret stored in plaintext")
	}
}

func TestSecretsPersistAcrossStores(t *testing.T) {
	masterKey, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}

	filename := t.TempDir() + "/secrets.json"
	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		t.Fatalf("Failed to create LocalSecretStore: %v", err)
	}
	if err = store.StoreSecretByID("default", "creds"); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	reopened, err := NewLocalSecretStore(masterKey, filename, false)
	if err != nil {
		t.Fatalf("Failed to reopen LocalSecretStore: %v", err)
	}
	retrieved, err := reopened.GetSecretByID("default")
	if err != nil {
		t.Fatalf("Failed to get secret after reopen: %v", err)
	}
	if retrieved != "creds" {
		t.Errorf("Expected secret creds, got %s", retrieved)
	}
}

func TestRemoveSecretByID(t *testing.T) {
	masterKey, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}

	filename := t.TempDir() + "/secrets.json"
	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		t.Fatalf("Failed to create LocalSecretStore: %v", err)
	}
	if err = store.StoreSecretByID("x3000m0", "creds"); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	if err = store.RemoveSecretByID("x3000m0"); err != nil {
		t.Fatalf("Failed to remove secret: %v", err)
	}
	if _, err = store.GetSecretByID("x3000m0"); err == nil {
		t.Error("Expected error retrieving removed secret")
	}
	if err = store.RemoveSecretByID("x3000m0"); err == nil {
		t.Error("Expected error removing missing secret")
	}
}

func TestSealedSecretsAreScopedToTheirID(t *testing.T) {
	masterKey, err := GenerateMasterKey()
	if err != nil {
		t.Fatalf("Failed to generate master key: %v", err)
	}

	filename := t.TempDir() + "/secrets.json"
	store, err := NewLocalSecretStore(masterKey, filename, true)
	if err != nil {
		t.Fatalf("Failed to create LocalSecretStore: %v", err)
	}
	if err = store.StoreSecretByID("x3000m0", "creds"); err != nil {
		t.Fatalf("Failed to store secret: %v", err)
	}

	// a ciphertext sealed for one PDU must not open under another's key
	sealed, err := store.ListSecrets()
	if err != nil {
		t.Fatalf("Failed to list secrets: %v", err)
	}
	if _, err = store.openSecret("x3000m1", sealed["x3000m0"]); err == nil {
		t.Error("Expected decryption under a different secret ID to fail")
	}
	if _, err = store.openSecret("x3000m0", "abcd"); err == nil {
		t.Error("Expected truncated sealed value to fail")
	}
}

func TestOpenStoreRequiresMasterKey(t *testing.T) {
	t.Setenv("MASTER_KEY", "")
	os.Unsetenv("MASTER_KEY")
	if _, err := OpenStore("whatever.json"); err == nil {
		t.Error("Expected error when MASTER_KEY is unset")
	}
}

func TestStaticStore(t *testing.T) {
	store := NewStaticStore("admn", "initial")
	secret, err := store.GetSecretByID("any-id-at-all")
	if err != nil {
		t.Fatalf("Failed to get secret: %v", err)
	}
	want := `{"username":"admn","password":"initial"}`
	if secret != want {
		t.Errorf("Expected %s, got %s", want, secret)
	}
}
