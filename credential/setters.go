package credential

// SetActive returns an UpdateSetter that sets the credential's active flag.
func SetActive(isActive bool) UpdateSetter {
	return func(c *Credential) error {
		c.IsActive = isActive
		return nil
	}
}

// SetEncryptedSecret returns an UpdateSetter that replaces the secret blob.
func SetEncryptedSecret(encrypted []byte) UpdateSetter {
	return func(c *Credential) error {
		if len(encrypted) == 0 {
			return ErrEmptySecret
		}
		c.EncryptedSecret = encrypted
		return nil
	}
}
