package gungi

type movementRule func(b *Board, owner Player, from, to Position) error

var movementRules = map[PieceType]movementRule{
	Marshal:    marshalRule,
	General:    generalRule,
	Pawn:       pawnRule,
	Bow:        bowRule,
	Shinobi:    shinobiRule,
	Lieutenant: stepper(Lieutenant, "moves one step in any direction except diagonally backward", lieutenantPattern),
	Major:      stepper(Major, "moves one step diagonally or one step straight forward", majorPattern),
	Minor:      stepper(Minor, "moves one step forward or sideways", minorPattern),
	Fort:       stepper(Fort, "moves one step orthogonally", fortPattern),
	Fortress:   stepper(Fortress, "moves one step in any direction without changing tier", fortressPattern),
	Spy:        stepper(Spy, "jumps two cells in one direction and one in the other", spyPattern),
	Cannon:     slider(Cannon, "slides orthogonally", cannonPattern),
	Lance:      slider(Lance, "slides straight forward", lancePattern),
}

func marshalRule(_ *Board, _ Player, from, to Position) error {
	d := deltaOf(from, to)
	if abs(d.dr) <= 1 && abs(d.dc) <= 1 && abs(d.dt) <= 1 && abs(d.dr)+abs(d.dc)+abs(d.dt) > 0 {
		return nil
	}
	return illegal(Marshal, "moves one step in any direction, changing at most one tier")
}

func generalRule(b *Board, _ Player, from, to Position) error {
	d := deltaOf(from, to)
	if !onLine(d) {
		return illegal(General, "moves along a straight or diagonal line")
	}
	if pathBlocked(b, from, to) {
		return illegal(General, "path from %s to %s is blocked", from, to)
	}
	return nil
}

func pawnRule(_ *Board, owner Player, from, to Position) error {
	if isSingleStack(from, to) {
		return nil
	}
	d := deltaOf(from, to)
	if d.dr == owner.Forward() && d.dc == 0 {
		return nil
	}
	return illegal(Pawn, "must move exactly one row forward")
}

func bowRule(_ *Board, _ Player, from, to Position) error {
	d := deltaOf(from, to)
	if !onLine(d) {
		return illegal(Bow, "shoots along a straight or diagonal line")
	}
	if abs(d.dr)+abs(d.dc) <= 1 {
		return illegal(Bow, "cannot move a single step")
	}
	return nil
}

func shinobiRule(_ *Board, _ Player, from, to Position) error {
	d := deltaOf(from, to)
	if abs(d.dr) <= 2 && abs(d.dc) <= 2 {
		return nil
	}
	return illegal(Shinobi, "moves at most two rows and two columns")
}

// stepper builds the rule for the short-range pieces: a same-cell stack is
// always allowed, otherwise the pattern must match and the tier may change by
// at most one.
func stepper(t PieceType, desc string, pattern func(d delta, fwd int) bool) movementRule {
	return func(_ *Board, owner Player, from, to Position) error {
		if isSingleStack(from, to) {
			return nil
		}
		d := deltaOf(from, to)
		if abs(d.dt) > 1 || !pattern(d, owner.Forward()) {
			return illegal(t, desc)
		}
		return nil
	}
}

// slider is stepper for line pieces, which are also blocked by occupied
// intermediate cells at the origin tier.
func slider(t PieceType, desc string, pattern func(d delta, fwd int) bool) movementRule {
	step := stepper(t, desc, pattern)
	return func(b *Board, owner Player, from, to Position) error {
		if err := step(b, owner, from, to); err != nil {
			return err
		}
		if pathBlocked(b, from, to) {
			return illegal(t, "path from %s to %s is blocked", from, to)
		}
		return nil
	}
}

func lieutenantPattern(d delta, fwd int) bool {
	if abs(d.dr) > 1 || abs(d.dc) > 1 || (d.dr == 0 && d.dc == 0) {
		return false
	}
	return !(d.dr == -fwd && d.dc != 0)
}

func majorPattern(d delta, fwd int) bool {
	return (abs(d.dr) == 1 && abs(d.dc) == 1) || (d.dr == fwd && d.dc == 0)
}

func minorPattern(d delta, fwd int) bool {
	return (d.dr == fwd && d.dc == 0) || (d.dr == 0 && abs(d.dc) == 1)
}

func fortPattern(d delta, _ int) bool {
	return abs(d.dr)+abs(d.dc) == 1
}

func fortressPattern(d delta, _ int) bool {
	return d.dt == 0 && abs(d.dr) <= 1 && abs(d.dc) <= 1 && (d.dr != 0 || d.dc != 0)
}

func spyPattern(d delta, _ int) bool {
	r, c := abs(d.dr), abs(d.dc)
	return (r == 1 && c == 2) || (r == 2 && c == 1)
}

func cannonPattern(d delta, _ int) bool {
	return (d.dr == 0) != (d.dc == 0)
}

func lancePattern(d delta, fwd int) bool {
	return d.dc == 0 && d.dr != 0 && sign(d.dr) == fwd
}
