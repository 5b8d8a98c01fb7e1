package mdp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimals printed for values.
const DefaultPrecision = 8

// LoadPolicy reads a policy file for a model with the given number of states
// and actions: one integer action per line, ordered by state id.
func LoadPolicy(path string, states, actions int) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	policy, err := ReadPolicy(f, states, actions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return policy, nil
}

// ReadPolicy parses one action per non-blank line. Fewer lines than states is
// an error; lines beyond the last state are ignored.
func ReadPolicy(r io.Reader, states, actions int) ([]int, error) {
	policy := make([]int, 0, states)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() && len(policy) < states {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		a, err := strconv.Atoi(text)
		if err != nil {
			return nil, fmt.Errorf("policy line %d: %w", lineNo, err)
		}
		if a < 0 || a >= actions {
			return nil, fmt.Errorf("policy line %d: action %d out of range [0, %d)", lineNo, a, actions)
		}
		policy = append(policy, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(policy) < states {
		return nil, fmt.Errorf("policy has %d entries, want %d", len(policy), states)
	}
	return policy, nil
}

// WriteValuePolicy prints "<value>\t<action>" per state in ascending order.
// A precision below zero selects DefaultPrecision.
func WriteValuePolicy(w io.Writer, values []float64, policy []int, precision int) error {
	if len(values) != len(policy) {
		return fmt.Errorf("values and policy length mismatch (%d vs %d)", len(values), len(policy))
	}
	if precision < 0 {
		precision = DefaultPrecision
	}
	bw := bufio.NewWriter(w)
	for s, v := range values {
		if v == 0 {
			v = 0 // drop negative zero
		}
		bw.WriteString(strconv.FormatFloat(v, 'f', precision, 64))
		bw.WriteByte('\t')
		bw.WriteString(strconv.Itoa(policy[s]))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// ReadValuePolicy parses planner output back into values and actions. Lines
// with fewer than two fields are skipped.
func ReadValuePolicy(r io.Reader) ([]float64, []int, error) {
	var (
		values []float64
		policy []int
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("value-policy line %d: %w", lineNo, err)
		}
		a, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, nil, fmt.Errorf("value-policy line %d: %w", lineNo, err)
		}
		values = append(values, v)
		policy = append(policy, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return values, policy, nil
}

// LoadValuePolicy reads planner output from disk.
func LoadValuePolicy(path string) ([]float64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return ReadValuePolicy(f)
}
