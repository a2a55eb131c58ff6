package hierarchy

const systemPrompt = `Debes identificar el sistema, subsistema y componente al que pertenece la pieza.

Sistemas y subsistemas permitidos (la lista es estricta):
%s
Solo son criticos: frenos delantero, trasero, de servicio y de parqueo; turbos y ventilador; radiador, bomba de agua y aftercooler; bomba de combustible e inyectores; motor, cigueñal, compresor y pistones; convertidor y caja de cambios; mandos finales y diferencial; transmision, embrague y unidad de fuerza; todos los neumaticos; suspension delantera y trasera.

Nota: componentes que NUNCA seran criticos (en ningun contexto): Mangueras, Ductos, Sensores, Termostatos, Cables, Pernos, Filtros, Cañerias, Lineas, Espejos, Luces, Interruptores, Conectores, Acumuladores u otros componentes de menor tamaño o relevancia.

Formato de salida:
- system: sistema al que pertenece la pieza
- subsystem: subsistema al que pertenece la pieza
- component: nombre breve del componente
- is_critical: true/false
- detail: posicion o detalle adicional de la pieza, o null`

const userExamples = `Transforma el resumen entregado a continuacion en un esquema Sistema-Subsistema-Componente.
Centrate en la pieza de interes señalada.
Ejemplos:
- Pieza: "Neumatico posicion 1" -> Equipo / Neumaticos / Neumatico, critico, detalle "Posicion 1"
- Pieza: "Bomba de direccion" -> Direccion / Bombeo / Bomba de direccion, critico
- Pieza: "Filtro de aceite" -> Motor / Lubricacion / Filtro de aceite, no critico
- Pieza: "Aceite de motor" -> Motor / Lubricacion / Aceite de motor, no critico
- Pieza: "Manguera de refrigerante de motor" -> Motor / Refrigeracion / Manguera de refrigerante, no critico
- Pieza: "Tapa y sellos de transmision" -> Tren de fuerza / Transmision / Tapa y sellos
- Pieza: "Refrigerante (47 litros)" -> Motor / Refrigeracion / Refrigerante, no critico
- Pieza: "Rotocamara trasera derecha" -> Frenado / Frenos / Rotocamara, no critico, detalle "Trasera derecha"`

const userTarget = `La pieza en la que te debes centrar es :"%s". El resumen del trabajo es: "%s". Por favor, proporciona la jerarquía de componentes para esta pieza.`
