package engine

// Verify-mode operations: the happy path, and the reorder-search
// recovery path invoked on mismatch.

// verifyMessage handles the "message match" case.
func (c *Channel) verifyMessage(text string) (int, error) {
	msg := normalizePayload(text)
	top := c.top()
	expected := messageLine(top.Prefix, msg)

	for {
		line, eof, err := c.nextRelevant(top.Prefix)
		if err != nil {
			return 0, c.raise(err)
		}
		if eof {
			return 0, c.raise(c.truncated())
		}
		if line == expected {
			if len(c.stack) >= 2 {
				c.journal = append(c.journal, messageAction(msg))
			}
			return len(msg), nil
		}

		ok, err := c.reorderSearch(line)
		if err != nil {
			return 0, c.raise(err)
		}
		if !ok {
			return 0, c.raise(&Error{
				Kind: MessageMismatch, Channel: c.Name, Line: c.lineNo,
				Message: "message did not match recorded trace",
				Cause:   c.exhaustedError(),
			})
		}
		// reorderSearch repositioned reader/state; retry the scan.
	}
}

// verifyOpenBlock handles the "open block" case. Unlike message
// and close verification, a mismatch here never triggers reorder
// search: opening a fresh block commits to a brand new expectation, so
// finding something else entirely is a hard structural error, not a
// candidate for re-iterating an enclosing block.
func (c *Channel) verifyOpenBlock(name string) (*Block, error) {
	if err := validateBlockName(c.Name, name); err != nil {
		return nil, c.raise(err)
	}
	parent := c.top()
	prefix := childPrefix(parent.Prefix, name)
	expected := openLine(prefix)

	line, eof, err := c.nextRelevant(parent.Prefix)
	if err != nil {
		return nil, c.raise(err)
	}
	if eof {
		return nil, c.raise(c.truncated())
	}
	if line != expected {
		return nil, c.raise(&Error{
			Kind: UnexpectedFrame, Channel: c.Name, Line: c.lineNo,
			Message: "expected block open frame for \"" + prefix + "\"",
		})
	}

	b := &Block{
		Channel: c.Name, Name: name, Prefix: prefix,
		Base: c.reader.tell(), BeginLine: c.lineNo, kind: blockUser,
	}
	c.journal = append(c.journal, enterAction(prefix))
	b.ReplayStart = len(c.journal)
	c.push(b)
	return b, nil
}

// verifyCloseBlock handles the "close block" case. It is called
// when the top block's scope handle is disposed, so its own failures
// are captured as pending errors rather than returned.
func (c *Channel) verifyCloseBlock(b *Block) {
	expected := closeLine(b.Prefix)

	for {
		line, eof, err := c.nextRelevant(b.Prefix)
		if err != nil {
			c.setPendingFromDestruction(c.raise(err))
			return
		}
		if eof {
			c.setPendingFromDestruction(c.raise(c.truncated()))
			return
		}
		if line == expected {
			break
		}
		ok, err := c.reorderSearch(line)
		if err != nil {
			c.setPendingFromDestruction(c.raise(err))
			return
		}
		if !ok {
			c.setPendingFromDestruction(c.raise(&Error{
				Kind: EndOfBlockViolation, Channel: c.Name, Line: c.lineNo,
				Message: "could not find closing frame for \"" + b.Prefix + "\"",
				Cause:   c.exhaustedError(),
			}))
			return
		}
		// reorderSearch repositioned state; loop and rescan for the top
		// block's own close frame, which is not guaranteed to appear next.
	}

	c.closeBookkeeping(b)

	if c.top() != b {
		c.setPendingFromDestruction(&Error{Kind: UnexpectedFrame, Channel: c.Name, Message: "block closed out of order"})
		return
	}
	c.pop()

	if len(c.stack) >= 2 {
		c.journal = append(c.journal, leaveAction(b.Prefix))
	} else {
		c.journal = c.journal[:0]
	}
}

// closeBookkeeping runs once the current iteration has succeeded, so
// it is removed from the unmatched set for its
// prefix; if further unmatched iterations remain, the reader is
// repositioned to the earliest one so the outer scope's next scan
// picks it up as the next candidate.
func (c *Channel) closeBookkeeping(b *Block) {
	blinks := c.unmatched.forPrefix(b.Prefix)
	blinks.removeOffset(b.Base)
	if blinks.isEmpty() {
		return
	}
	first, _ := blinks.first()
	if seekErr := c.reader.seek(first.offset); seekErr != nil {
		c.pendingError = ioError(c.Name, seekErr)
		return
	}
	c.lineNo = first.line
	blinks.removeOffset(first.offset)
}

func (c *Channel) truncated() *Error {
	return &Error{Kind: TruncatedTrace, Channel: c.Name, Line: c.lineNo, Message: "reached end of file while more trace content was expected"}
}

// raise stores err as the channel's pending error, since errors are
// terminal once raised on a synchronous call path, and returns it
// unchanged.
func (c *Channel) raise(err error) error {
	c.pendingError = err
	return err
}
