package engine

// Record-mode operations. No searching, no journaling; failure modes
// are only I/O errors.

func (c *Channel) recordOpenBlock(name string) (*Block, error) {
	if err := validateBlockName(c.Name, name); err != nil {
		c.pendingError = err
		return nil, err
	}
	prefix := childPrefix(c.top().Prefix, name)
	if err := c.writer.writeLine(openLine(prefix)); err != nil {
		e := ioError(c.Name, err)
		c.pendingError = e
		return nil, e
	}
	c.lineNo++
	b := &Block{Channel: c.Name, Name: name, Prefix: prefix, kind: blockUser}
	c.push(b)
	return b, nil
}

func (c *Channel) recordMessage(text string) (int, error) {
	payload := normalizePayload(text)
	line := messageLine(c.top().Prefix, payload)
	if err := c.writer.writeLine(line); err != nil {
		e := ioError(c.Name, err)
		c.pendingError = e
		return 0, e
	}
	c.lineNo++
	return len(payload), nil
}

func (c *Channel) recordCloseBlock(b *Block) error {
	if err := c.writer.writeLine(closeLine(b.Prefix)); err != nil {
		e := ioError(c.Name, err)
		c.pendingError = e
		return e
	}
	c.lineNo++
	if c.top() != b {
		return &Error{Kind: UnexpectedFrame, Channel: c.Name, Message: "block closed out of order"}
	}
	c.pop()
	return nil
}
