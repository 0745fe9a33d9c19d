package tower

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// TwoInv is 1/2 in Fq.
var TwoInv fp.Element

// CoeffB is the constant term of the twisted curve equation
// y^2 = x^3 + 3/(9+u) the G2 points satisfy.
var CoeffB Fq2

// TwistMulByQX and TwistMulByQY map a G2 point through the p-power
// endomorphism of the twist.
var (
	TwistMulByQX Fq2
	TwistMulByQY Fq2
)

// Frobenius coefficients for powers 1..3 (index 0 unused):
// frob12C1[k] = xi^((p^k-1)/6), frob6C1[k] = xi^((p^k-1)/3),
// frob6C2[k] = xi^(2(p^k-1)/3) with xi = 9+u.
var (
	frob12C1 [4]Fq2
	frob6C1  [4]Fq2
	frob6C2  [4]Fq2
)

func init() {
	TwoInv.SetUint64(2)
	TwoInv.Inverse(&TwoInv)

	CoeffB.SetString(
		"19485874751759354771024239261021720505790618469301721065564631296452457478373",
		"266929791119991161246907387137283842545076965332900288569378510910307636690",
	)

	var xi Fq2
	xi.A0.SetUint64(9)
	xi.A1.SetOne()

	p := fp.Modulus()
	one := big.NewInt(1)
	six := big.NewInt(6)

	pk := new(big.Int).Set(p)
	for k := 1; k <= 3; k++ {
		e := new(big.Int).Sub(pk, one)
		e.Div(e, six)
		frob12C1[k].Exp(&xi, e)
		frob6C1[k].Square(&frob12C1[k])
		frob6C2[k].Square(&frob6C1[k])
		pk.Mul(pk, p)
	}

	// xi^((p-1)/3) and xi^((p-1)/2)
	TwistMulByQX = frob6C1[1]
	TwistMulByQY.Mul(&frob12C1[1], &frob6C1[1])
}
