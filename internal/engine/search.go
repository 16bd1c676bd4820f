package engine

// reorderSearch is the reordering search engine. It is written as an
// explicit loop rather than recursion, since a stack-limited runtime
// would otherwise bound how deeply loops can nest: each pass around
// the loop plays the role of one recursive "try the next enclosing
// block" call, and `line`/`haveLine` play the role of the recursive
// call's `lastLine` argument.
//
// Returns true once a candidate iteration has been found whose
// opening frame matches and whose replayed journal is fully consistent
// with it; the reader is left positioned immediately before the
// originally failed expectation, which the caller re-attempts by
// continuing its own scan loop. Returns false when the outermost open
// user block has no more iterations, after recording a diagnostic via
// c.lastSearchFailure.
func (c *Channel) reorderSearch(lastLine string) (bool, error) {
	line := lastLine
	haveLine := true

	for len(c.stack) > 1 {
		top := c.top()

		c.unmatched.forPrefix(top.Prefix).insert(top.Base, top.BeginLine)

		expectedClose := closeLine(top.Prefix)
		if !(haveLine && line == expectedClose) {
			eof, err := c.scanUntilExact(expectedClose)
			if err != nil {
				return false, err
			}
			if eof {
				return false, c.raise(c.truncated())
			}
		}

		if entry, ok := c.unmatched.forPrefix(top.Prefix).firstAfter(top.Base); ok {
			c.unmatched.forPrefix(top.Prefix).removeOffset(entry.offset)
			if err := c.reader.seek(entry.offset); err != nil {
				return false, ioError(c.Name, err)
			}
			c.lineNo = entry.line
		}
		// else: the next candidate is simply the current file position.

		top.Base = c.reader.tell()
		top.BeginLine = c.lineNo

		expectedOpen := openLine(top.Prefix)
		found, eof, err := c.nextRelevant(top.Prefix)
		if err != nil {
			return false, err
		}

		if eof || found != expectedOpen {
			c.pop()
			if top.isSynthesized() {
				c.popSynthesized(top)
			} else {
				c.rolledBack = append(c.rolledBack, top)
			}
			if eof {
				haveLine = false
			} else {
				line = found
				haveLine = true
			}
			continue
		}

		ok, offending, replayEOF, err := c.replayJournal(top)
		if err != nil {
			return false, err
		}
		if ok {
			if len(c.rolledBack) != 0 || len(c.synthesized) != 0 {
				return false, &Error{Kind: IOErrorKind, Channel: c.Name, Message: "internal invariant violated: auxiliary stacks not empty after successful replay"}
			}
			return true, nil
		}
		if replayEOF {
			haveLine = false
		} else {
			line = offending
			haveLine = true
		}
	}

	c.lastSearchFailure = &Error{
		Kind: SearchExhausted, Channel: c.Name, Line: c.lineNo,
		Message:    "no remaining iteration of any enclosing block satisfies the pending expectation",
		Diagnostic: c.renderDiagnosticTree(),
	}
	c.logger.Error("dilog: reorder search exhausted", "line", c.lineNo)
	return false, nil
}

func (c *Channel) exhaustedError() error {
	if c.lastSearchFailure == nil {
		return nil
	}
	return c.lastSearchFailure
}

// popSynthesized removes b from the top of the search-synthesized
// stack. b is always that top by construction: reorderSearch only
// calls this immediately after popping b from the main block stack,
// and a synthesized block is pushed onto both stacks together and can
// only be torn down from the top of either.
func (c *Channel) popSynthesized(b *Block) {
	n := len(c.synthesized)
	if n > 0 && c.synthesized[n-1] == b {
		c.synthesized = c.synthesized[:n-1]
	}
}

// replayJournal replays every action recorded since top.ReplayStart
// against the candidate iteration whose
// opening frame was just matched. top is already on c.stack, so
// c.top().Prefix always reflects the currently active prefix as
// nested EnterBlock/LeaveBlock actions push and pop further blocks
// during replay.
//
// On success, returns (true, "", false, nil). On rejection, returns
// (false, offendingLine, false, nil) if a concrete mismatching
// relevant line was found, or (false, "", true, nil) if the candidate
// iteration ran out of file before every action replayed.
func (c *Channel) replayJournal(top *Block) (ok bool, offending string, eof bool, err error) {
	for i := top.ReplayStart; i < len(c.journal); i++ {
		act := c.journal[i]

		switch act.kind {
		case actionMessage:
			expected := messageLine(c.top().Prefix, act.text)
			line, isEOF, rerr := c.nextRelevant(c.top().Prefix)
			if rerr != nil {
				return false, "", false, rerr
			}
			if isEOF {
				return false, "", true, nil
			}
			if line != expected {
				return false, line, false, nil
			}

		case actionEnterBlock:
			p := act.prefix
			expected := openLine(p)
			line, isEOF, rerr := c.nextRelevant(p)
			if rerr != nil {
				return false, "", false, rerr
			}
			if isEOF {
				return false, "", true, nil
			}
			if line != expected {
				return false, line, false, nil
			}
			c.replayEnterBlock(p, i)

		case actionLeaveBlock:
			p := act.prefix
			expected := closeLine(p)
			line, isEOF, rerr := c.nextRelevant(p)
			if rerr != nil {
				return false, "", false, rerr
			}
			if isEOF {
				return false, "", true, nil
			}
			if line != expected {
				return false, line, false, nil
			}
			if rerr := c.replayLeaveBlock(); rerr != nil {
				return false, "", false, rerr
			}
		}
	}
	return true, "", false, nil
}

// replayEnterBlock pushes the block entered by journal index i's
// EnterBlock(prefix) action: if the top of rolled-back-user-blocks has
// this prefix and was abandoned at exactly this journal position, it
// is the same iteration rediscovered and is restored to the main
// stack; otherwise a new Synthesized block is created and owned by the
// search engine until its matching LeaveBlock replays.
func (c *Channel) replayEnterBlock(prefix string, journalIndex int) {
	base := c.reader.tell()
	beginLine := c.lineNo

	if n := len(c.rolledBack); n > 0 {
		candidate := c.rolledBack[n-1]
		if candidate.Prefix == prefix && candidate.ReplayStart == journalIndex+1 {
			c.rolledBack = c.rolledBack[:n-1]
			candidate.Base = base
			candidate.BeginLine = beginLine
			c.push(candidate)
			return
		}
	}

	b := &Block{
		Channel: c.Name, Name: nameFromPrefix(prefix), Prefix: prefix,
		Base: base, BeginLine: beginLine, ReplayStart: journalIndex + 1,
		kind: blockSynthesized,
	}
	c.synthesized = append(c.synthesized, b)
	c.push(b)
}

// replayLeaveBlock pops the block whose LeaveBlock action just
// replayed. The top of search-synthesized-blocks must equal the top of
// the block stack.
func (c *Channel) replayLeaveBlock() error {
	popped := c.pop()
	n := len(c.synthesized)
	if n == 0 || c.synthesized[n-1] != popped {
		return &Error{Kind: IOErrorKind, Channel: c.Name, Message: "internal invariant violated: LeaveBlock replay popped a non-synthesized block"}
	}
	c.synthesized = c.synthesized[:n-1]
	return nil
}
