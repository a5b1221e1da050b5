package reversi

// DefaultDepth is the search depth used when a caller does not choose one.
const DefaultDepth = 5

// Candidate is one root move with the score the search assigned to it.
type Candidate struct {
	Move  Position `json:"move"`
	Score int      `json:"score"`
}

// Result is the outcome of a search.
type Result struct {
	Move  Position
	Score int
	// Found is false when the mover had no legal move; Score is then the
	// board's own score.
	Found bool
	// Nodes counts the boards visited, including the root.
	Nodes int
}

// BestMove runs a fixed-depth minimax from b. Even remaining depths pick the
// highest candidate score and odd depths the lowest; ties keep the earliest
// move in row-major order. A mover without legal moves ends the line at once
// with the board's own score: the turn is not passed.
func BestMove(b Board, depth int) (Position, int, bool) {
	r := Search(b, depth)
	return r.Move, r.Score, r.Found
}

// Search is BestMove with node accounting.
func Search(b Board, depth int) Result {
	r, _ := Analyze(b, depth)
	return r
}

// Candidates returns the score of every legal root move at the given depth,
// in row-major order.
func Candidates(b Board, depth int) []Candidate {
	_, cands := Analyze(b, depth)
	return cands
}

// Analyze runs the search and also returns the root candidates it chose
// from.
func Analyze(b Board, depth int) (Result, []Candidate) {
	s := &searcher{}
	s.nodes++
	moves := b.LegalMoves()
	if len(moves) == 0 {
		return Result{Score: b.Score(), Nodes: s.nodes}, []Candidate{}
	}
	cands := s.candidates(b, moves, depth)
	return s.pick(cands, depth), cands
}

type searcher struct {
	nodes int
}

func (s *searcher) search(b Board, depth int) Result {
	s.nodes++
	moves := b.LegalMoves()
	if len(moves) == 0 {
		return Result{Score: b.Score(), Nodes: s.nodes}
	}
	return s.pick(s.candidates(b, moves, depth), depth)
}

// pick keeps the first best candidate: highest on even depths, lowest on odd.
func (s *searcher) pick(cands []Candidate, depth int) Result {
	best := cands[0]
	maximize := depth%2 == 0
	for _, c := range cands[1:] {
		if (maximize && c.Score > best.Score) || (!maximize && c.Score < best.Score) {
			best = c
		}
	}
	return Result{Move: best.Move, Score: best.Score, Found: true, Nodes: s.nodes}
}

// candidates scores each move. At depth 0 every move gets the score of b
// itself, not of the board after the move.
func (s *searcher) candidates(b Board, moves []Position, depth int) []Candidate {
	cands := make([]Candidate, 0, len(moves))
	if depth <= 0 {
		leaf := b.Score()
		for _, m := range moves {
			cands = append(cands, Candidate{Move: m, Score: leaf})
		}
		return cands
	}
	for _, m := range moves {
		r := s.search(b.ApplyMove(m), depth-1)
		cands = append(cands, Candidate{Move: m, Score: r.Score})
	}
	return cands
}
