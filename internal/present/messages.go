package present

import "fmt"

const (
	msgTitle       = "Jogo do número secreto"
	msgWinTitle    = "Acertou!"
	msgLower       = "O número secreto é menor"
	msgHigher      = "O número secreto é maior"
	msgPlayAgain   = "Clique em Novo jogo para jogar de novo"
	msgWinTemplate = "Você descobriu o número secreto com %s!"
)

func msgPick(max int) string {
	return fmt.Sprintf("Escolha um número entre 1 e %d", max)
}

func msgInvalid(max int) string {
	return fmt.Sprintf("Digite um número válido entre 1 e %d", max)
}
