package engine

// readTrackedLine reads the next line from the channel's reader and
// advances the channel's line counter, which tracks every line
// consumed regardless of relevance so CurrentLine and diagnostics
// report a position consistent with the file's own line numbers.
func (c *Channel) readTrackedLine() (line string, eof bool, err error) {
	line, eof, err = c.reader.readLine()
	if err != nil {
		return "", false, ioError(c.Name, err)
	}
	if eof {
		return "", true, nil
	}
	c.lineNo++
	return line, false, nil
}

// nextRelevant reads tracked lines, silently skipping any not relevant
// to prefix, and returns the next relevant line found (or eof).
func (c *Channel) nextRelevant(prefix string) (line string, eof bool, err error) {
	for {
		l, isEOF, rerr := c.readTrackedLine()
		if rerr != nil {
			return "", false, rerr
		}
		if isEOF {
			return "", true, nil
		}
		if isRelevant(l, prefix) {
			return l, false, nil
		}
	}
}

// scanUntilExact reads tracked lines unconditionally (no relevance
// filtering) until one is byte-equal to expected, or EOF.
func (c *Channel) scanUntilExact(expected string) (eof bool, err error) {
	for {
		l, isEOF, rerr := c.readTrackedLine()
		if rerr != nil {
			return false, rerr
		}
		if isEOF {
			return true, nil
		}
		if l == expected {
			return false, nil
		}
	}
}
