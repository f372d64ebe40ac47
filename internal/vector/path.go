/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Path commands, bounds and the SVG path-data codec used by path objects.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	QuadTo  // quadratic bezier (cx, cy, x, y)
	CubicTo // cubic bezier (cx1, cy1, cx2, cy2, x, y)
	Close
)

type PathCmd struct {
	Op   PathOp
	Data [6]float64 // enough for cubic; unused slots are zero
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Data: [6]float64{x, y}})
}
func (p *Path) LineTo(x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Data: [6]float64{x, y}})
}
func (p *Path) QuadTo(cx, cy, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: QuadTo, Data: [6]float64{cx, cy, x, y}})
}
func (p *Path) CubicTo(cx1, cy1, cx2, cy2, x, y float64) {
	p.Cmds = append(p.Cmds, PathCmd{Op: CubicTo, Data: [6]float64{cx1, cy1, cx2, cy2, x, y}})
}
func (p *Path) Close() { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// points returns the number of coordinate pairs an op carries.
func (op PathOp) points() int {
	switch op {
	case MoveTo, LineTo:
		return 1
	case QuadTo:
		return 2
	case CubicTo:
		return 3
	}
	return 0
}

// Bounds returns an axis-aligned bounding box of the path using control
// points. Good enough for selection and layout.
func (p *Path) Bounds() Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range p.Cmds {
		for i := 0; i < c.Op.points(); i++ {
			x, y := c.Data[2*i], c.Data[2*i+1]
			minX, minY = math.Min(minX, x), math.Min(minY, y)
			maxX, maxY = math.Max(maxX, x), math.Max(maxY, y)
		}
	}
	if minX > maxX || minY > maxY {
		return Rect{}
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Translated returns a copy with every point shifted by dx,dy.
func (p Path) Translated(dx, dy float64) Path {
	out := Path{Cmds: make([]PathCmd, len(p.Cmds))}
	for i, c := range p.Cmds {
		for j := 0; j < c.Op.points(); j++ {
			c.Data[2*j] += dx
			c.Data[2*j+1] += dy
		}
		out.Cmds[i] = c
	}
	return out
}

// String serializes the path as absolute SVG path data.
func (p Path) String() string {
	var b strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			b.WriteByte('M')
		case LineTo:
			b.WriteByte('L')
		case QuadTo:
			b.WriteByte('Q')
		case CubicTo:
			b.WriteByte('C')
		case Close:
			b.WriteByte('Z')
			continue
		}
		for j := 0; j < 2*c.Op.points(); j++ {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatFloat(FloatRound(c.Data[j], 3), 'f', -1, 64))
		}
	}
	return b.String()
}

// ParsePathData parses SVG path data with the M L H V Q T C S Z commands in
// absolute and relative form. Arcs are not supported.
func ParsePathData(d string) (Path, error) {
	toks, err := tokenizePath(d)
	if err != nil {
		return Path{}, err
	}
	var (
		p            Path
		cur, start   Pt
		lastCtl      Pt
		lastOp       byte
		cmd          byte
		i            int
		hasLastCubic bool
		hasLastQuad  bool
	)
	num := func() (float64, error) {
		if i >= len(toks) || toks[i].isCmd {
			return 0, fmt.Errorf("path data: expected number after %q", cmd)
		}
		v := toks[i].num
		i++
		return v, nil
	}
	pair := func(rel bool) (Pt, error) {
		x, err := num()
		if err != nil {
			return Pt{}, err
		}
		y, err := num()
		if err != nil {
			return Pt{}, err
		}
		if rel {
			return Pt{cur.X + x, cur.Y + y}, nil
		}
		return Pt{x, y}, nil
	}
	for i < len(toks) {
		if toks[i].isCmd {
			cmd = toks[i].cmd
			i++
		} else if cmd == 0 {
			return Path{}, fmt.Errorf("path data: must start with a command")
		}
		rel := cmd >= 'a' && cmd <= 'z'
		up := cmd &^ 0x20
		hasLastCubic = lastOp == 'C' || lastOp == 'S'
		hasLastQuad = lastOp == 'Q' || lastOp == 'T'
		switch up {
		case 'M':
			pt, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			p.MoveTo(pt.X, pt.Y)
			cur, start = pt, pt
			// implicit lineto for following pairs
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			pt, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			p.LineTo(pt.X, pt.Y)
			cur = pt
		case 'H':
			x, err := num()
			if err != nil {
				return Path{}, err
			}
			if rel {
				x += cur.X
			}
			cur = Pt{x, cur.Y}
			p.LineTo(cur.X, cur.Y)
		case 'V':
			y, err := num()
			if err != nil {
				return Path{}, err
			}
			if rel {
				y += cur.Y
			}
			cur = Pt{cur.X, y}
			p.LineTo(cur.X, cur.Y)
		case 'Q':
			c1, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			end, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			p.QuadTo(c1.X, c1.Y, end.X, end.Y)
			lastCtl, cur = c1, end
		case 'T':
			c1 := cur
			if hasLastQuad {
				c1 = Pt{2*cur.X - lastCtl.X, 2*cur.Y - lastCtl.Y}
			}
			end, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			p.QuadTo(c1.X, c1.Y, end.X, end.Y)
			lastCtl, cur = c1, end
		case 'C':
			c1, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			c2, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			end, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			lastCtl, cur = c2, end
		case 'S':
			c1 := cur
			if hasLastCubic {
				c1 = Pt{2*cur.X - lastCtl.X, 2*cur.Y - lastCtl.Y}
			}
			c2, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			end, err := pair(rel)
			if err != nil {
				return Path{}, err
			}
			p.CubicTo(c1.X, c1.Y, c2.X, c2.Y, end.X, end.Y)
			lastCtl, cur = c2, end
		case 'Z':
			p.Close()
			cur = start
			if i < len(toks) && !toks[i].isCmd {
				return Path{}, fmt.Errorf("path data: number after close")
			}
		default:
			return Path{}, fmt.Errorf("path data: unsupported command %q", cmd)
		}
		lastOp = up
	}
	return p, nil
}

type pathToken struct {
	isCmd bool
	cmd   byte
	num   float64
}

func tokenizePath(d string) ([]pathToken, error) {
	var out []pathToken
	for i := 0; i < len(d); {
		c := d[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.IndexByte("MmLlHhVvQqTtCcSsZzAa", c) >= 0:
			out = append(out, pathToken{isCmd: true, cmd: c})
			i++
		default:
			j := i
			if d[j] == '-' || d[j] == '+' {
				j++
			}
			dot := false
			for j < len(d) {
				ch := d[j]
				if ch >= '0' && ch <= '9' {
					j++
					continue
				}
				if ch == '.' && !dot {
					dot = true
					j++
					continue
				}
				if (ch == 'e' || ch == 'E') && j+1 < len(d) {
					j++
					if d[j] == '-' || d[j] == '+' {
						j++
					}
					continue
				}
				break
			}
			if j == i {
				return nil, fmt.Errorf("path data: unexpected %q at %d", c, i)
			}
			v, err := strconv.ParseFloat(d[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("path data: %w", err)
			}
			out = append(out, pathToken{num: v})
			i = j
		}
	}
	return out, nil
}
