package audit

import (
	"math"

	"github.com/wonny/niftron/internal/contracts"
)

// TTestResult is a two-sample Welch t-test on daily returns
type TTestResult struct {
	A      string  `json:"a"`
	B      string  `json:"b"`
	T      float64 `json:"t_statistic"`
	DF     float64 `json:"degrees_of_freedom"`
	PValue float64 `json:"p_value"` // two-sided
}

// WelchTTest compares the mean daily return of a and b without assuming equal variance.
// Degenerate inputs (fewer than two points or zero variance) report t = 0 and p = 1.
func WelchTTest(a, b contracts.ReturnSeries) TTestResult {
	res := TTestResult{A: a.Name, B: b.Name, PValue: 1}

	xa, xb := a.Values(), b.Values()
	na, nb := float64(len(xa)), float64(len(xb))
	if na < 2 || nb < 2 {
		return res
	}

	va, vb := variance(xa)/na, variance(xb)/nb
	se2 := va + vb
	if se2 == 0 {
		return res
	}

	res.T = (mean(xa) - mean(xb)) / math.Sqrt(se2)
	res.DF = se2 * se2 / (va*va/(na-1) + vb*vb/(nb-1))
	res.PValue = studentTwoSided(res.T, res.DF)
	return res
}

// studentTwoSided is P(|T| > |t|) for Student's t with df degrees of freedom
func studentTwoSided(t, df float64) float64 {
	x := df / (df + t*t)
	return regIncBeta(df/2, 0.5, x)
}

// regIncBeta is the regularized incomplete beta function I_x(a, b)
func regIncBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	front := math.Exp(lab - la - lb + a*math.Log(x) + b*math.Log(1-x))

	// the continued fraction converges fastest below the mean
	if x < (a+1)/(a+b+2) {
		return front * betaCF(a, b, x) / a
	}
	return 1 - front*betaCF(b, a, 1-x)/b
}

// betaCF evaluates the incomplete beta continued fraction (modified Lentz)
func betaCF(a, b, x float64) float64 {
	const (
		maxIter = 300
		eps     = 1e-14
		tiny    = 1e-300
	)

	qab, qap, qam := a+b, a+1, a-1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
