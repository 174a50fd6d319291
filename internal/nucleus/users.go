package nucleus

// AddUser registers username as a user allowed to operate the Computer, per
// spec section 4.7. An empty user list means the Computer is open to anyone;
// adding the first user closes it. It fails with ErrLimit past MaxUsers or
// MaxUsername, and is a no-op if username is already registered.
func (c *Computer) AddUser(username string) error {
	if len(username) > MaxUsername {
		return ErrLimit
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, u := range c.users {
		if u == username {
			return nil
		}
	}

	if len(c.users) >= MaxUsers {
		return ErrLimit
	}

	c.users = append(c.users, username)

	return nil
}

// RemoveUser deregisters username. It fails with ErrBadState if username is
// not registered.
func (c *Computer) RemoveUser(username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, u := range c.users {
		if u == username {
			c.users = append(c.users[:i], c.users[i+1:]...)
			return nil
		}
	}

	return ErrBadState
}

// HasUser reports whether username may operate the Computer: true if the
// user list is empty (open machine) or username is registered.
func (c *Computer) HasUser(username string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.users) == 0 {
		return true
	}

	for _, u := range c.users {
		if u == username {
			return true
		}
	}

	return false
}

// Users returns a copy of the registered usernames.
func (c *Computer) Users() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.users))
	copy(out, c.users)

	return out
}
